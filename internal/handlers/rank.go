package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/middleware"
	"flarelog/internal/models"
	"flarelog/internal/services"
)

type RankHandler struct {
	store     docstore.Store
	table     *services.RankTable
	evaluator *services.Evaluator
	cache     *services.SnapshotCache
	log       *zap.Logger
}

func NewRankHandler(store docstore.Store, table *services.RankTable, evaluator *services.Evaluator, cache *services.SnapshotCache, log *zap.Logger) *RankHandler {
	return &RankHandler{store: store, table: table, evaluator: evaluator, cache: cache, log: log}
}

type rankResponse struct {
	Score        int    `json:"score"`
	RankID       string `json:"rank_id"`
	RankName     string `json:"rank_name"`
	MinScore     int    `json:"min_score"`
	NextRankName string `json:"next_rank_name,omitempty"`
	NextMinScore *int   `json:"next_min_score,omitempty"`
	PrevRankName string `json:"prev_rank_name,omitempty"`
	PrevMinScore *int   `json:"prev_min_score,omitempty"`
}

// Get returns the user's score, current rank and the neighboring thresholds.
func (h *RankHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	user, ok := h.cache.Get(userID)
	if !ok {
		if err := h.store.Read(r.Context(), models.CollectionUsers, userID, &user); err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.cache.Put(user)
	}
	if user.RankID == "" {
		http.Error(w, "no rank assigned", http.StatusConflict)
		return
	}

	var current models.Rank
	if err := h.store.Read(r.Context(), models.CollectionRanks, user.RankID, &current); err != nil {
		h.log.Warn("dangling rank reference", zap.String("user_id", userID), zap.String("rank_id", user.RankID))
		http.Error(w, "rank not found", http.StatusInternalServerError)
		return
	}

	resp := rankResponse{
		Score:    user.Score,
		RankID:   current.ID,
		RankName: current.Name,
		MinScore: current.MinScore,
	}
	if next, ok := h.table.Next(current.ID); ok {
		var rank models.Rank
		if err := h.store.Read(r.Context(), models.CollectionRanks, next.ID, &rank); err == nil {
			resp.NextRankName = rank.Name
			resp.NextMinScore = &rank.MinScore
		}
	}
	if prev, ok := h.table.Previous(current.ID); ok {
		var rank models.Rank
		if err := h.store.Read(r.Context(), models.CollectionRanks, prev.ID, &rank); err == nil {
			resp.PrevRankName = rank.Name
			resp.PrevMinScore = &rank.MinScore
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Evaluate runs one promotion/demotion step and reports the outcome.
func (h *RankHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	eval, err := h.evaluator.Evaluate(r.Context(), userID)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		http.Error(w, "not found", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrRankNotAssigned), errors.Is(err, services.ErrRankNotFound):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "could not evaluate rank", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"outcome":   eval.Outcome.String(),
		"rank_id":   eval.Rank.ID,
		"rank_name": eval.Rank.Name,
	})
}
