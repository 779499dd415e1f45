package services

import "errors"

// Sentinel errors shared by the gamification services. Store failures are
// propagated wrapped; these cover the domain-level conditions callers branch
// on.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRankNotAssigned = errors.New("user has no rank assigned")
	ErrRankNotFound    = errors.New("rank not found")
)
