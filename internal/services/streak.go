package services

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
)

// DefaultFreezeChance is the percent chance that a missed day freezes instead
// of breaking the streak. Fixed policy, not derived from user data.
const DefaultFreezeChance = 15

// Resolution says what ResolveYesterday did.
type Resolution int

const (
	ResolvedNothing Resolution = iota
	ResolvedBroken
	ResolvedFrozen
	ResolvedBackfilled
)

func (r Resolution) String() string {
	switch r {
	case ResolvedBroken:
		return "broken"
	case ResolvedFrozen:
		return "frozen"
	case ResolvedBackfilled:
		return "backfilled"
	default:
		return "nothing"
	}
}

// Streaks maintains one check-in per calendar day per user. A day starts as
// an Empty placeholder, is completed by qualifying activity, and is settled
// to Broken or Frozen by the next day's resolution. The decision for a day
// is deferred until the day after it, so a day the user never returns for is
// still accounted for by the backfill path.
type Streaks struct {
	store docstore.Store
	log   *zap.Logger
	loc   *time.Location

	// FreezeChance is the percent (0-100) of missed days that resolve to
	// Frozen rather than Broken.
	FreezeChance int

	now  func() time.Time
	roll func() int // uniform in [1,100]
}

func NewStreaks(store docstore.Store, loc *time.Location, log *zap.Logger) *Streaks {
	return &Streaks{
		store:        store,
		log:          log,
		loc:          loc,
		FreezeChance: DefaultFreezeChance,
		now:          time.Now,
		roll:         func() int { return rand.Intn(100) + 1 },
	}
}

// dayBounds returns the inclusive bounds of the calendar day containing t.
// The end bound is built from the next calendar date rather than a 24h offset
// so DST-transition days keep their full length.
func (s *Streaks) dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(s.loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	end := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, s.loc).Add(-time.Nanosecond)
	return start, end
}

// Now reports the service clock in the configured location.
func (s *Streaks) Now() time.Time {
	return s.now().In(s.loc)
}

// TodayBounds returns the inclusive bounds of the current calendar day.
// Handlers that keep their own per-day records use it so every "one per day"
// rule in the system agrees on what today is.
func (s *Streaks) TodayBounds() (time.Time, time.Time) {
	return s.dayBounds(s.now())
}

// SetClock overrides the service clock; tests pin it to exercise day
// boundaries.
func (s *Streaks) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Streaks) checkinsBetween(ctx context.Context, userID string, from, to time.Time) ([]models.Checkin, error) {
	var checkins []models.Checkin
	err := s.store.FindByDateRange(ctx, models.CollectionCheckins, "userId", userID, "createdAt", from, &to, &checkins)
	return checkins, err
}

// EnsureTodayPlaceholder creates today's Empty check-in when none exists for
// the day. Idempotent; safe on every app foreground event.
func (s *Streaks) EnsureTodayPlaceholder(ctx context.Context, userID string) error {
	start, end := s.dayBounds(s.now())
	today, err := s.checkinsBetween(ctx, userID, start, end)
	if err != nil {
		return err
	}
	if len(today) > 0 {
		return nil
	}
	checkin := models.Checkin{
		UserID:    userID,
		Status:    models.StatusEmpty,
		CreatedAt: s.now().In(s.loc),
	}
	_, err = s.store.Create(ctx, models.CollectionCheckins, "", checkin)
	return err
}

// CompleteToday promotes today's Empty placeholder to Completed. When no
// Empty placeholder exists (already completed, or never created) it is a
// silent no-op; callers needing strict semantics must ensure the placeholder
// first. Returns whether a transition happened.
func (s *Streaks) CompleteToday(ctx context.Context, userID string) (bool, error) {
	start, end := s.dayBounds(s.now())
	today, err := s.checkinsBetween(ctx, userID, start, end)
	if err != nil {
		return false, err
	}
	for _, c := range today {
		if c.Status != models.StatusEmpty {
			continue
		}
		patch := map[string]any{"status": models.StatusCompleted}
		if err := s.store.Update(ctx, models.CollectionCheckins, c.ID, patch); err != nil {
			return false, err
		}
		s.log.Debug("checkin completed", zap.String("user_id", userID), zap.String("checkin_id", c.ID))
		return true, nil
	}
	return false, nil
}

// ResolveYesterday settles yesterday's check-in. An Empty yesterday resolves
// randomly to Frozen (FreezeChance percent) or Broken. When yesterday has no
// record at all, the most recent check-in is consulted: a Completed or Frozen
// one gets a Broken day synthesized right after it (one day per call, so
// long gaps catch up over repeated calls), a stale Empty one is resolved in
// place to Broken, and a brand-new user is a no-op.
func (s *Streaks) ResolveYesterday(ctx context.Context, userID string) (Resolution, error) {
	start, end := s.dayBounds(s.now().AddDate(0, 0, -1))
	yesterday, err := s.checkinsBetween(ctx, userID, start, end)
	if err != nil {
		return ResolvedNothing, err
	}

	for _, c := range yesterday {
		if c.Status == models.StatusEmpty {
			return s.settle(ctx, c)
		}
	}
	if len(yesterday) > 0 {
		// Already settled.
		return ResolvedNothing, nil
	}

	var recent models.Checkin
	found, err := s.store.FindMostRecent(ctx, models.CollectionCheckins, "userId", userID, &recent)
	if err != nil {
		return ResolvedNothing, err
	}
	if !found {
		// New user, nothing to resolve.
		return ResolvedNothing, nil
	}

	switch recent.Status {
	case models.StatusCompleted, models.StatusFrozen, models.StatusBroken:
		// An unaccounted gap after the last settled day is a missed day.
		// Settled days keep advancing one day per call until the record
		// catches up with the calendar.
		gap := models.Checkin{
			UserID:    userID,
			Status:    models.StatusBroken,
			CreatedAt: recent.CreatedAt.In(s.loc).AddDate(0, 0, 1),
		}
		if _, err := s.store.Create(ctx, models.CollectionCheckins, "", gap); err != nil {
			return ResolvedNothing, err
		}
		s.log.Debug("gap day backfilled",
			zap.String("user_id", userID),
			zap.Time("day", gap.CreatedAt),
		)
		return ResolvedBackfilled, nil
	case models.StatusEmpty:
		// A stale placeholder from whichever day counts as missed.
		patch := map[string]any{"status": models.StatusBroken}
		if err := s.store.Update(ctx, models.CollectionCheckins, recent.ID, patch); err != nil {
			return ResolvedNothing, err
		}
		return ResolvedBroken, nil
	default:
		return ResolvedNothing, nil
	}
}

// settle resolves an Empty check-in with the weighted coin flip.
func (s *Streaks) settle(ctx context.Context, c models.Checkin) (Resolution, error) {
	status := models.StatusBroken
	res := ResolvedBroken
	if s.roll() <= s.FreezeChance {
		status = models.StatusFrozen
		res = ResolvedFrozen
	}
	patch := map[string]any{"status": status}
	if err := s.store.Update(ctx, models.CollectionCheckins, c.ID, patch); err != nil {
		return ResolvedNothing, err
	}
	s.log.Debug("checkin settled",
		zap.String("user_id", c.UserID),
		zap.String("status", status.String()),
	)
	return res, nil
}

// TodayStatus returns today's check-in when one exists.
func (s *Streaks) TodayStatus(ctx context.Context, userID string) (models.Checkin, bool, error) {
	start, end := s.dayBounds(s.now())
	today, err := s.checkinsBetween(ctx, userID, start, end)
	if err != nil {
		return models.Checkin{}, false, err
	}
	if len(today) == 0 {
		return models.Checkin{}, false, nil
	}
	// Prefer a settled record over a lingering placeholder.
	best := today[0]
	for _, c := range today[1:] {
		if best.Status == models.StatusEmpty && c.Status != models.StatusEmpty {
			best = c
		}
	}
	return best, true, nil
}
