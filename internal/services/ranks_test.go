package services

import (
	"context"
	"testing"

	"flarelog/internal/docstore"
	"flarelog/internal/models"
)

func TestRankTableNext(t *testing.T) {
	table := NewRankTable(DefaultLadder)

	tests := []struct {
		name   string
		rankID string
		wantID string
		wantOK bool
	}{
		{name: "lowest has a next", rankID: "rank-bronze", wantID: "rank-silver", wantOK: true},
		{name: "middle has a next", rankID: "rank-gold", wantID: "rank-platinum", wantOK: true},
		{name: "highest has none", rankID: "rank-diamond", wantOK: false},
		{name: "unknown has none", rankID: "rank-mithril", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Next(tt.rankID)
			if ok != tt.wantOK {
				t.Fatalf("Next(%q) ok = %v, want %v", tt.rankID, ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Fatalf("Next(%q) = %q, want %q", tt.rankID, got.ID, tt.wantID)
			}
		})
	}
}

func TestRankTablePrevious(t *testing.T) {
	table := NewRankTable(DefaultLadder)

	tests := []struct {
		name   string
		rankID string
		wantID string
		wantOK bool
	}{
		{name: "highest has a previous", rankID: "rank-diamond", wantID: "rank-platinum", wantOK: true},
		{name: "middle has a previous", rankID: "rank-silver", wantID: "rank-bronze", wantOK: true},
		{name: "lowest has none", rankID: "rank-bronze", wantOK: false},
		{name: "unknown has none", rankID: "rank-mithril", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Previous(tt.rankID)
			if ok != tt.wantOK {
				t.Fatalf("Previous(%q) ok = %v, want %v", tt.rankID, ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Fatalf("Previous(%q) = %q, want %q", tt.rankID, got.ID, tt.wantID)
			}
		})
	}
}

func TestSeedRanksIdempotent(t *testing.T) {
	store := docstore.NewMemory()
	table := NewRankTable(DefaultLadder)
	ctx := context.Background()

	if err := SeedRanks(ctx, store, table); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := SeedRanks(ctx, store, table); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var ranks []models.Rank
	if err := store.List(ctx, models.CollectionRanks, &ranks); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ranks) != len(DefaultLadder) {
		t.Fatalf("expected %d ranks, got %d", len(DefaultLadder), len(ranks))
	}

	var bronze models.Rank
	if err := store.Read(ctx, models.CollectionRanks, "rank-bronze", &bronze); err != nil {
		t.Fatalf("read bronze: %v", err)
	}
	if bronze.MinScore != 0 {
		t.Fatalf("expected bronze threshold 0, got %d", bronze.MinScore)
	}
}
