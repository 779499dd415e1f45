package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"flarelog/internal/middleware"
	"flarelog/internal/services"
)

type CheckinHandler struct {
	streaks *services.Streaks
	log     *zap.Logger
}

func NewCheckinHandler(streaks *services.Streaks, log *zap.Logger) *CheckinHandler {
	return &CheckinHandler{streaks: streaks, log: log}
}

// Start is the session-start hook the app calls on foreground: it settles
// yesterday's check-in, then makes sure today has a placeholder.
func (h *CheckinHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	resolution, err := h.streaks.ResolveYesterday(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not resolve yesterday", http.StatusInternalServerError)
		return
	}
	if err := h.streaks.EnsureTodayPlaceholder(r.Context(), userID); err != nil {
		http.Error(w, "could not create today's checkin", http.StatusInternalServerError)
		return
	}

	today, found, err := h.streaks.TodayStatus(r.Context(), userID)
	if err != nil || !found {
		http.Error(w, "could not load today's checkin", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"yesterday": resolution.String(),
		"today":     ToCheckinDTO(today),
	})
}

// Today returns the current day's check-in, if any.
func (h *CheckinHandler) Today(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	today, found, err := h.streaks.TodayStatus(r.Context(), userID)
	if err != nil {
		http.Error(w, "could not load today's checkin", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ToCheckinDTO(today))
}
