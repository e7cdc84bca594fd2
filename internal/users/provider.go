// Package users provides the list of people a task can be assigned to.
// The list is fetched from the task service at most once per session and
// kept in a local cache between sessions.
package users

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
)

// Fetcher loads users from the task service.
type Fetcher interface {
	ListUsers(ctx context.Context) ([]board.User, error)
}

// Cache stores a user list between sessions. Get reports ok=false on a
// miss or an expired entry.
type Cache interface {
	Get(ctx context.Context) (users []board.User, ok bool, err error)
	Put(ctx context.Context, users []board.User) error
}

// Provider serves the user list, fetching it once and then answering from
// memory. It is safe for concurrent use.
type Provider struct {
	fetcher Fetcher
	cache   Cache
	log     *log.Logger

	mu     sync.Mutex
	users  []board.User
	loaded bool
}

// NewProvider creates a provider. cache may be nil to disable caching.
func NewProvider(fetcher Fetcher, cache Cache, logger *log.Logger) *Provider {
	if fetcher == nil {
		panic("users.NewProvider: fetcher is nil")
	}
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}
	return &Provider{fetcher: fetcher, cache: cache, log: logger}
}

// Users returns the user list, consulting memory, then the cache, then
// the service.
func (p *Provider) Users(ctx context.Context) ([]board.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return clone(p.users), nil
	}

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx)
		if err != nil {
			p.log.WithError(err).Warn("user cache read failed")
		}
		if ok {
			p.log.WithField("users", len(cached)).Debug("users served from cache")
			p.users, p.loaded = cached, true
			return clone(cached), nil
		}
	}

	return p.fetchLocked(ctx)
}

// Refresh discards what is known and fetches from the service.
func (p *Provider) Refresh(ctx context.Context) ([]board.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchLocked(ctx)
}

// Lookup finds a user by ID or by case-insensitive name.
func (p *Provider) Lookup(ctx context.Context, ref string) (board.User, error) {
	all, err := p.Users(ctx)
	if err != nil {
		return board.User{}, err
	}
	for _, u := range all {
		if u.ID == ref {
			return u, nil
		}
	}
	for _, u := range all {
		if strings.EqualFold(u.Name, ref) {
			return u, nil
		}
	}
	return board.User{}, fmt.Errorf("unknown user %q", ref)
}

func (p *Provider) fetchLocked(ctx context.Context) ([]board.User, error) {
	fetched, err := p.fetcher.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	p.users, p.loaded = fetched, true

	if p.cache != nil {
		if err := p.cache.Put(ctx, fetched); err != nil {
			p.log.WithError(err).Warn("user cache write failed")
		}
	}
	return clone(fetched), nil
}

func clone(users []board.User) []board.User {
	return append([]board.User(nil), users...)
}
