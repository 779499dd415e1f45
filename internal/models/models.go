package models

import "time"

// Collection names used across the document store.
const (
	CollectionUsers    = "users"
	CollectionRanks    = "ranks"
	CollectionCheckins = "checkins"
	CollectionEntries  = "painEntries"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Score        int       `json:"score"`
	RankID       string    `json:"rankId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Rank is one tier of the fixed progression. Ranks are seeded once and only
// read thereafter; ordering between ranks comes from the hierarchy table, not
// from MinScore.
type Rank struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MinScore int    `json:"minScore"`
}

// CheckinStatus is the outcome of a single calendar day.
type CheckinStatus int

const (
	StatusEmpty     CheckinStatus = -1
	StatusBroken    CheckinStatus = 0
	StatusCompleted CheckinStatus = 1
	StatusFrozen    CheckinStatus = 2
)

func (s CheckinStatus) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusBroken:
		return "broken"
	case StatusCompleted:
		return "completed"
	case StatusFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// Checkin records a day's streak outcome for a user. It is created as Empty
// when the app opens, completed by qualifying activity the same day, and
// settled to Broken or Frozen by the following day's resolution.
type Checkin struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Status    CheckinStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

type PainEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Intensity int       `json:"intensity"`
	Areas     []string  `json:"areas,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
