package users

import (
	"context"
	"time"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
)

// StoreCache keeps the user list in the local sqlite database.
type StoreCache struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewStoreCache creates a cache on s. Entries older than ttl are misses;
// a zero ttl never expires.
func NewStoreCache(s *store.Store, ttl time.Duration) *StoreCache {
	return &StoreCache{store: s, ttl: ttl, now: time.Now}
}

// Get returns the cached list, or a miss if it is empty or expired.
func (c *StoreCache) Get(ctx context.Context) ([]board.User, bool, error) {
	rows, err := c.store.ListUsers()
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	users := make([]board.User, 0, len(rows))
	for _, r := range rows {
		if c.ttl > 0 && c.now().Sub(r.FetchedAt) > c.ttl {
			return nil, false, nil
		}
		users = append(users, board.User{ID: r.ID, Name: r.Name, Picture: r.Picture})
	}
	return users, true, nil
}

// Put replaces the cached list.
func (c *StoreCache) Put(ctx context.Context, users []board.User) error {
	now := c.now().UTC()
	rows := make([]store.User, 0, len(users))
	for _, u := range users {
		rows = append(rows, store.User{ID: u.ID, Name: u.Name, Picture: u.Picture, FetchedAt: now})
	}
	return c.store.ReplaceUsers(rows)
}
