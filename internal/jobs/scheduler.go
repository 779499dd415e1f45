// Package jobs runs the background settlement work: every night each user's
// previous day is resolved and one rank evaluation step is applied.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
	"flarelog/internal/services"
)

type Scheduler struct {
	cron      *cron.Cron
	store     docstore.Store
	streaks   *services.Streaks
	evaluator *services.Evaluator
	log       *zap.Logger
}

func NewScheduler(store docstore.Store, streaks *services.Streaks, evaluator *services.Evaluator, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		store:     store,
		streaks:   streaks,
		evaluator: evaluator,
		log:       log,
	}
}

// Start registers the nightly sweep and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			s.log.Error("nightly sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("schedule", schedule))
	return nil
}

// Sweep settles yesterday and runs one rank step for every user. Individual
// failures are logged and skipped; the sweep keeps going.
func (s *Scheduler) Sweep(ctx context.Context) error {
	var users []models.User
	if err := s.store.List(ctx, models.CollectionUsers, &users); err != nil {
		return err
	}

	settled, moved := 0, 0
	for _, u := range users {
		res, err := s.streaks.ResolveYesterday(ctx, u.ID)
		if err != nil {
			s.log.Warn("resolve failed", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		if res != services.ResolvedNothing {
			settled++
		}
		eval, err := s.evaluator.Evaluate(ctx, u.ID)
		if err != nil {
			s.log.Warn("evaluation failed", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		if eval.Outcome != services.Unchanged {
			moved++
		}
	}
	s.log.Info("nightly sweep done",
		zap.Int("users", len(users)),
		zap.Int("settled", settled),
		zap.Int("rank_moves", moved),
	)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
