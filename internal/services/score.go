package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
)

// Ledger applies point deltas to a user's cumulative score. Writes are
// optimistic read-then-write: two concurrent calls can lose an update, which
// is accepted for a single-device-per-account app.
type Ledger struct {
	store docstore.Store
	cache *SnapshotCache
	log   *zap.Logger
}

func NewLedger(store docstore.Store, cache *SnapshotCache, log *zap.Logger) *Ledger {
	return &Ledger{store: store, cache: cache, log: log}
}

// AddPoints adds delta (which may be negative) to the user's score, persists
// only the score field, and returns the new total. No floor is applied; a
// score can go negative.
func (l *Ledger) AddPoints(ctx context.Context, userID string, delta int) (int, error) {
	var user models.User
	err := l.store.Read(ctx, models.CollectionUsers, userID, &user)
	if errors.Is(err, docstore.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	newScore := user.Score + delta
	patch := map[string]any{"score": newScore}
	if err := l.store.Update(ctx, models.CollectionUsers, userID, patch); err != nil {
		return 0, err
	}

	user.Score = newScore
	l.cache.Put(user)
	l.log.Debug("score updated",
		zap.String("user_id", userID),
		zap.Int("delta", delta),
		zap.Int("score", newScore),
	)
	return newScore, nil
}

// RemovePoints subtracts n points.
func (l *Ledger) RemovePoints(ctx context.Context, userID string, n int) (int, error) {
	return l.AddPoints(ctx, userID, -n)
}
