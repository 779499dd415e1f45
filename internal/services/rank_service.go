package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
)

// Outcome of a single rank evaluation.
type Outcome int

const (
	Unchanged Outcome = iota
	Promoted
	Demoted
)

func (o Outcome) String() string {
	switch o {
	case Promoted:
		return "promoted"
	case Demoted:
		return "demoted"
	default:
		return "unchanged"
	}
}

// Evaluation is the result of one evaluator call. Rank is the user's rank
// after the call (the new rank on a move, the current one otherwise).
type Evaluation struct {
	Outcome Outcome
	Rank    models.Rank
}

// Evaluator moves a user at most one step up or down the ladder per call.
// A score implying several rank jumps converges over repeated calls; the
// nightly job runs one step per user per night.
type Evaluator struct {
	store docstore.Store
	table *RankTable
	cache *SnapshotCache
	log   *zap.Logger
}

func NewEvaluator(store docstore.Store, table *RankTable, cache *SnapshotCache, log *zap.Logger) *Evaluator {
	return &Evaluator{store: store, table: table, cache: cache, log: log}
}

func (e *Evaluator) Evaluate(ctx context.Context, userID string) (Evaluation, error) {
	var user models.User
	err := e.store.Read(ctx, models.CollectionUsers, userID, &user)
	if errors.Is(err, docstore.ErrNotFound) {
		return Evaluation{}, ErrUserNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}
	if user.RankID == "" {
		return Evaluation{}, ErrRankNotAssigned
	}

	current, err := e.fetchRank(ctx, user.RankID)
	if err != nil {
		return Evaluation{}, err
	}

	if user.Score >= current.MinScore {
		next, ok := e.table.Next(current.ID)
		if !ok {
			return Evaluation{Outcome: Unchanged, Rank: current}, nil
		}
		nextRank, err := e.fetchRank(ctx, next.ID)
		if err != nil {
			return Evaluation{}, err
		}
		if err := e.move(ctx, &user, nextRank); err != nil {
			return Evaluation{}, err
		}
		return Evaluation{Outcome: Promoted, Rank: nextRank}, nil
	}

	prev, ok := e.table.Previous(current.ID)
	if !ok {
		return Evaluation{Outcome: Unchanged, Rank: current}, nil
	}
	prevRank, err := e.fetchRank(ctx, prev.ID)
	if err != nil {
		return Evaluation{}, err
	}
	if err := e.move(ctx, &user, prevRank); err != nil {
		return Evaluation{}, err
	}
	return Evaluation{Outcome: Demoted, Rank: prevRank}, nil
}

func (e *Evaluator) fetchRank(ctx context.Context, rankID string) (models.Rank, error) {
	var rank models.Rank
	err := e.store.Read(ctx, models.CollectionRanks, rankID, &rank)
	if errors.Is(err, docstore.ErrNotFound) {
		e.log.Warn("dangling rank reference", zap.String("rank_id", rankID))
		return models.Rank{}, fmt.Errorf("%w: %s", ErrRankNotFound, rankID)
	}
	if err != nil {
		return models.Rank{}, err
	}
	return rank, nil
}

func (e *Evaluator) move(ctx context.Context, user *models.User, to models.Rank) error {
	patch := map[string]any{"rankId": to.ID}
	if err := e.store.Update(ctx, models.CollectionUsers, user.ID, patch); err != nil {
		return err
	}
	user.RankID = to.ID
	e.cache.Put(*user)
	e.log.Info("rank changed",
		zap.String("user_id", user.ID),
		zap.String("rank", to.Name),
		zap.Int("score", user.Score),
	)
	return nil
}
