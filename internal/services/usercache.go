package services

import (
	"sync"

	"flarelog/internal/models"
)

// SnapshotCache mirrors user documents that were confirmed written, so reads
// within a session skip the remote round-trip. It is refreshed only after a
// successful store write; a failed write leaves the previous snapshot intact.
type SnapshotCache struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{users: make(map[string]models.User)}
}

func (c *SnapshotCache) Get(userID string) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[userID]
	return u, ok
}

func (c *SnapshotCache) Put(u models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

func (c *SnapshotCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, userID)
}
