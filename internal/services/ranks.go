package services

import (
	"context"
	"errors"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
)

// RankEntry is one slot in the fixed rank ladder. Only the ordering lives
// here; thresholds (MinScore) live on the rank documents in the store.
type RankEntry struct {
	ID   string
	Name string
}

// DefaultLadder is the progression shipped with the app, lowest first.
var DefaultLadder = []RankEntry{
	{ID: "rank-bronze", Name: "Bronze"},
	{ID: "rank-silver", Name: "Silver"},
	{ID: "rank-gold", Name: "Gold"},
	{ID: "rank-platinum", Name: "Platinum"},
	{ID: "rank-diamond", Name: "Diamond"},
}

// defaultThresholds are only used when seeding a fresh database.
var defaultThresholds = map[string]int{
	"rank-bronze":   0,
	"rank-silver":   100,
	"rank-gold":     250,
	"rank-platinum": 500,
	"rank-diamond":  1000,
}

// RankTable supplies the total order over ranks. It is static configuration,
// never persisted or mutated at runtime.
type RankTable struct {
	order []RankEntry
}

func NewRankTable(order []RankEntry) *RankTable {
	return &RankTable{order: order}
}

// Next returns the rank immediately above rankID, or false when rankID is the
// highest entry or unknown.
func (t *RankTable) Next(rankID string) (RankEntry, bool) {
	for i, e := range t.order {
		if e.ID == rankID {
			if i+1 >= len(t.order) {
				return RankEntry{}, false
			}
			return t.order[i+1], true
		}
	}
	return RankEntry{}, false
}

// Previous returns the rank immediately below rankID, or false when rankID is
// the lowest entry or unknown.
func (t *RankTable) Previous(rankID string) (RankEntry, bool) {
	for i, e := range t.order {
		if e.ID == rankID {
			if i == 0 {
				return RankEntry{}, false
			}
			return t.order[i-1], true
		}
	}
	return RankEntry{}, false
}

// Lowest returns the entry new users start at.
func (t *RankTable) Lowest() RankEntry {
	return t.order[0]
}

// SeedRanks creates a rank document for every ladder entry that does not
// exist yet. Safe to run on every startup.
func SeedRanks(ctx context.Context, store docstore.Store, table *RankTable) error {
	for _, e := range table.order {
		var existing models.Rank
		err := store.Read(ctx, models.CollectionRanks, e.ID, &existing)
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		rank := models.Rank{ID: e.ID, Name: e.Name, MinScore: defaultThresholds[e.ID]}
		if _, err := store.Create(ctx, models.CollectionRanks, e.ID, rank); err != nil {
			return err
		}
	}
	return nil
}
