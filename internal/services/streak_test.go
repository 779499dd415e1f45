package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
)

var streakNow = time.Date(2026, 3, 12, 10, 30, 0, 0, time.UTC)

func newStreakFixture(t *testing.T) (docstore.Store, *Streaks) {
	t.Helper()
	store := docstore.NewMemory()
	s := NewStreaks(store, time.UTC, zap.NewNop())
	s.now = func() time.Time { return streakNow }
	return store, s
}

func createCheckin(t *testing.T, store docstore.Store, userID string, status models.CheckinStatus, at time.Time) string {
	t.Helper()
	id, err := store.Create(context.Background(), models.CollectionCheckins, "", models.Checkin{
		UserID:    userID,
		Status:    status,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("create checkin: %v", err)
	}
	return id
}

func listCheckins(t *testing.T, store docstore.Store) []models.Checkin {
	t.Helper()
	var checkins []models.Checkin
	if err := store.List(context.Background(), models.CollectionCheckins, &checkins); err != nil {
		t.Fatalf("list checkins: %v", err)
	}
	return checkins
}

func TestEnsureTodayPlaceholderIdempotent(t *testing.T) {
	store, s := newStreakFixture(t)
	ctx := context.Background()

	if err := s.EnsureTodayPlaceholder(ctx, "u1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := s.EnsureTodayPlaceholder(ctx, "u1"); err != nil {
		t.Fatalf("second call: %v", err)
	}

	checkins := listCheckins(t, store)
	if len(checkins) != 1 {
		t.Fatalf("expected exactly one checkin for today, got %d", len(checkins))
	}
	if checkins[0].Status != models.StatusEmpty {
		t.Fatalf("expected Empty placeholder, got %v", checkins[0].Status)
	}
}

func TestPlaceholderOnDSTFallBackDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	store := docstore.NewMemory()
	s := NewStreaks(store, loc, zap.NewNop())
	// 23:30 on the 25-hour day when clocks fall back; the day bucket must
	// still reach it.
	s.now = func() time.Time { return time.Date(2026, 11, 1, 23, 30, 0, 0, loc) }
	ctx := context.Background()

	if err := s.EnsureTodayPlaceholder(ctx, "u1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.EnsureTodayPlaceholder(ctx, "u1"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if n := len(listCheckins(t, store)); n != 1 {
		t.Fatalf("expected one placeholder on the long day, got %d", n)
	}

	completed, err := s.CompleteToday(ctx, "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !completed {
		t.Fatal("late-evening placeholder escaped the day bucket")
	}
}

func TestCompleteToday(t *testing.T) {
	store, s := newStreakFixture(t)
	ctx := context.Background()

	if err := s.EnsureTodayPlaceholder(ctx, "u1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	completed, err := s.CompleteToday(ctx, "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !completed {
		t.Fatal("expected a transition on first completion")
	}

	// Second completion is a silent no-op.
	completed, err = s.CompleteToday(ctx, "u1")
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if completed {
		t.Fatal("expected no-op on second completion")
	}

	checkins := listCheckins(t, store)
	if len(checkins) != 1 {
		t.Fatalf("expected exactly one checkin, got %d", len(checkins))
	}
	if checkins[0].Status != models.StatusCompleted {
		t.Fatalf("expected Completed, got %v", checkins[0].Status)
	}
}

func TestCompleteTodayWithoutPlaceholderIsNoOp(t *testing.T) {
	_, s := newStreakFixture(t)

	completed, err := s.CompleteToday(context.Background(), "u1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed {
		t.Fatal("expected no-op when no placeholder exists")
	}
}

func TestResolveYesterdayEmptyRecord(t *testing.T) {
	tests := []struct {
		name       string
		roll       int
		want       Resolution
		wantStatus models.CheckinStatus
	}{
		{name: "roll at freeze bound freezes", roll: DefaultFreezeChance, want: ResolvedFrozen, wantStatus: models.StatusFrozen},
		{name: "roll above freeze bound breaks", roll: DefaultFreezeChance + 1, want: ResolvedBroken, wantStatus: models.StatusBroken},
		{name: "lowest roll freezes", roll: 1, want: ResolvedFrozen, wantStatus: models.StatusFrozen},
		{name: "highest roll breaks", roll: 100, want: ResolvedBroken, wantStatus: models.StatusBroken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, s := newStreakFixture(t)
			s.roll = func() int { return tt.roll }
			id := createCheckin(t, store, "u1", models.StatusEmpty, streakNow.AddDate(0, 0, -1))

			got, err := s.ResolveYesterday(context.Background(), "u1")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("resolution = %v, want %v", got, tt.want)
			}

			var settled models.Checkin
			if err := store.Read(context.Background(), models.CollectionCheckins, id, &settled); err != nil {
				t.Fatalf("read: %v", err)
			}
			if settled.Status != tt.wantStatus {
				t.Fatalf("status = %v, want %v", settled.Status, tt.wantStatus)
			}
		})
	}
}

func TestResolveYesterdayFreezeDistribution(t *testing.T) {
	// Sweep every possible roll once: exactly FreezeChance of 100 outcomes
	// must freeze.
	frozen := 0
	for roll := 1; roll <= 100; roll++ {
		store, s := newStreakFixture(t)
		r := roll
		s.roll = func() int { return r }
		createCheckin(t, store, "u1", models.StatusEmpty, streakNow.AddDate(0, 0, -1))

		got, err := s.ResolveYesterday(context.Background(), "u1")
		if err != nil {
			t.Fatalf("resolve at roll %d: %v", roll, err)
		}
		if got == ResolvedFrozen {
			frozen++
		}
	}
	if frozen != DefaultFreezeChance {
		t.Fatalf("expected %d frozen outcomes of 100, got %d", DefaultFreezeChance, frozen)
	}
}

func TestResolveYesterdayAlreadySettled(t *testing.T) {
	store, s := newStreakFixture(t)
	id := createCheckin(t, store, "u1", models.StatusCompleted, streakNow.AddDate(0, 0, -1))

	got, err := s.ResolveYesterday(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != ResolvedNothing {
		t.Fatalf("expected no-op on settled day, got %v", got)
	}

	var c models.Checkin
	if err := store.Read(context.Background(), models.CollectionCheckins, id, &c); err != nil {
		t.Fatalf("read: %v", err)
	}
	if c.Status != models.StatusCompleted {
		t.Fatalf("settled status was rewritten to %v", c.Status)
	}
}

func TestResolveYesterdayNewUser(t *testing.T) {
	store, s := newStreakFixture(t)

	got, err := s.ResolveYesterday(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != ResolvedNothing {
		t.Fatalf("expected no-op for new user, got %v", got)
	}
	if n := len(listCheckins(t, store)); n != 0 {
		t.Fatalf("expected no records created, got %d", n)
	}
}

func TestResolveYesterdayBackfillsGapOneDayPerCall(t *testing.T) {
	store, s := newStreakFixture(t)
	ctx := context.Background()

	// Last activity three days ago, completed.
	lastDay := streakNow.AddDate(0, 0, -3)
	createCheckin(t, store, "u1", models.StatusCompleted, lastDay)

	// First call synthesizes the day after the old record, not yesterday.
	got, err := s.ResolveYesterday(ctx, "u1")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if got != ResolvedBackfilled {
		t.Fatalf("expected backfill, got %v", got)
	}
	checkins := listCheckins(t, store)
	if len(checkins) != 2 {
		t.Fatalf("expected 2 records after first call, got %d", len(checkins))
	}
	gap := checkins[1]
	if gap.Status != models.StatusBroken {
		t.Fatalf("expected synthesized Broken, got %v", gap.Status)
	}
	wantDay := lastDay.AddDate(0, 0, 1)
	if !gap.CreatedAt.Equal(wantDay) {
		t.Fatalf("expected gap dated %v, got %v", wantDay, gap.CreatedAt)
	}

	// Second call advances one more day; third finds yesterday settled.
	if got, err = s.ResolveYesterday(ctx, "u1"); err != nil || got != ResolvedBackfilled {
		t.Fatalf("second resolve = %v, %v; want backfill", got, err)
	}
	if got, err = s.ResolveYesterday(ctx, "u1"); err != nil || got != ResolvedNothing {
		t.Fatalf("third resolve = %v, %v; want no-op once caught up", got, err)
	}
	if n := len(listCheckins(t, store)); n != 3 {
		t.Fatalf("expected 3 records once caught up, got %d", n)
	}
}

func TestResolveYesterdayStaleEmptyResolvedInPlace(t *testing.T) {
	store, s := newStreakFixture(t)

	// A placeholder left over from five days ago counts as a missed day,
	// whichever day it was stamped.
	id := createCheckin(t, store, "u1", models.StatusEmpty, streakNow.AddDate(0, 0, -5))

	got, err := s.ResolveYesterday(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != ResolvedBroken {
		t.Fatalf("expected in-place break, got %v", got)
	}

	var c models.Checkin
	if err := store.Read(context.Background(), models.CollectionCheckins, id, &c); err != nil {
		t.Fatalf("read: %v", err)
	}
	if c.Status != models.StatusBroken {
		t.Fatalf("expected Broken, got %v", c.Status)
	}
	if n := len(listCheckins(t, store)); n != 1 {
		t.Fatalf("expected in-place resolution, got %d records", n)
	}
}

func TestFreezeChanceOverride(t *testing.T) {
	store, s := newStreakFixture(t)
	s.FreezeChance = 0
	s.roll = func() int { return 1 }
	createCheckin(t, store, "u1", models.StatusEmpty, streakNow.AddDate(0, 0, -1))

	got, err := s.ResolveYesterday(context.Background(), "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != ResolvedBroken {
		t.Fatalf("freeze disabled, expected Broken, got %v", got)
	}
}

func TestTodayStatusPrefersSettledRecord(t *testing.T) {
	store, s := newStreakFixture(t)

	createCheckin(t, store, "u1", models.StatusEmpty, streakNow.Add(-2*time.Hour))
	createCheckin(t, store, "u1", models.StatusCompleted, streakNow.Add(-time.Hour))

	c, found, err := s.TodayStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !found {
		t.Fatal("expected a record for today")
	}
	if c.Status != models.StatusCompleted {
		t.Fatalf("expected the settled record, got %v", c.Status)
	}
}
