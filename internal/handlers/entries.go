package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flarelog/internal/docstore"
	"flarelog/internal/middleware"
	"flarelog/internal/models"
	"flarelog/internal/services"
)

// EntriesHandler manages the pain diary. Logging an entry is the qualifying
// activity for the day: the first entry completes today's check-in and
// awards points.
type EntriesHandler struct {
	store          docstore.Store
	streaks        *services.Streaks
	ledger         *services.Ledger
	pointsPerEntry int
	log            *zap.Logger
}

func NewEntriesHandler(store docstore.Store, streaks *services.Streaks, ledger *services.Ledger, pointsPerEntry int, log *zap.Logger) *EntriesHandler {
	return &EntriesHandler{
		store:          store,
		streaks:        streaks,
		ledger:         ledger,
		pointsPerEntry: pointsPerEntry,
		log:            log,
	}
}

type entryRequest struct {
	Intensity int      `json:"intensity"`
	Areas     []string `json:"areas"`
	Notes     string   `json:"notes"`
}

// Create logs a pain entry for today. One entry per day: a second submission
// updates the existing entry without awarding points again.
func (h *EntriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Intensity < 1 || req.Intensity > 10 {
		http.Error(w, "invalid body; intensity must be 1-10", http.StatusBadRequest)
		return
	}

	// Day bounds come from the streak service so the one-entry-per-day rule
	// and the check-in calendar agree on the configured timezone.
	now := h.streaks.Now()
	start, end := h.streaks.TodayBounds()
	var today []models.PainEntry
	if err := h.store.FindByDateRange(r.Context(), models.CollectionEntries, "userId", userID, "createdAt", start, &end, &today); err != nil {
		http.Error(w, "could not check today's entries", http.StatusInternalServerError)
		return
	}

	if len(today) > 0 {
		patch := map[string]any{
			"intensity": req.Intensity,
			"areas":     req.Areas,
			"notes":     req.Notes,
			"updatedAt": now,
		}
		if err := h.store.Update(r.Context(), models.CollectionEntries, today[0].ID, patch); err != nil {
			http.Error(w, "could not save", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": today[0].ID, "is_update": true})
		return
	}

	entry := models.PainEntry{
		UserID:    userID,
		Intensity: req.Intensity,
		Areas:     req.Areas,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.store.Create(r.Context(), models.CollectionEntries, "", entry)
	if err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}

	// First entry of the day qualifies: complete the check-in and award
	// points. The placeholder is ensured first so completion always has a
	// record to promote.
	if err := h.streaks.EnsureTodayPlaceholder(r.Context(), userID); err != nil {
		h.log.Warn("could not ensure placeholder", zap.String("user_id", userID), zap.Error(err))
	}
	completed, err := h.streaks.CompleteToday(r.Context(), userID)
	if err != nil {
		h.log.Warn("could not complete checkin", zap.String("user_id", userID), zap.Error(err))
	}
	awarded := 0
	if _, err := h.ledger.AddPoints(r.Context(), userID, h.pointsPerEntry); err != nil {
		h.log.Warn("could not award points", zap.String("user_id", userID), zap.Error(err))
	} else {
		awarded = h.pointsPerEntry
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":                id,
		"is_update":         false,
		"points_awarded":    awarded,
		"checkin_completed": completed,
	})
}

type entryDTO struct {
	ID        string   `json:"id"`
	Intensity int      `json:"intensity"`
	Areas     []string `json:"areas,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// List returns the user's entries, optionally bounded by start_date and
// end_date (YYYY-MM-DD).
func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	q := r.URL.Query()

	from := time.Time{}
	if s := q.Get("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			http.Error(w, "invalid start_date format; expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	var to *time.Time
	if s := q.Get("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			http.Error(w, "invalid end_date format; expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		bound := parsed.Add(24*time.Hour - time.Nanosecond)
		to = &bound
	}

	var entries []models.PainEntry
	if err := h.store.FindByDateRange(r.Context(), models.CollectionEntries, "userId", userID, "createdAt", from, to, &entries); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}

	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{
			ID:        e.ID,
			Intensity: e.Intensity,
			Areas:     e.Areas,
			Notes:     e.Notes,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
