package users

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/store"
)

type stubFetcher struct {
	listUsersFn func(ctx context.Context) ([]board.User, error)
	calls       int
}

func (s *stubFetcher) ListUsers(ctx context.Context) ([]board.User, error) {
	s.calls++
	if s.listUsersFn == nil {
		return nil, errors.New("unexpected ListUsers call")
	}
	return s.listUsersFn(ctx)
}

func fixedUsers(users ...board.User) *stubFetcher {
	return &stubFetcher{listUsersFn: func(context.Context) ([]board.User, error) {
		return append([]board.User(nil), users...), nil
	}}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestProvider_FetchesOncePerSession(t *testing.T) {
	f := fixedUsers(board.User{ID: "1", Name: "Ada"})
	p := NewProvider(f, nil, nil)

	for i := 0; i < 3; i++ {
		got, err := p.Users(context.Background())
		if err != nil {
			t.Fatalf("Users: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Ada" {
			t.Fatalf("unexpected users: %+v", got)
		}
	}
	if f.calls != 1 {
		t.Errorf("expected a single fetch, got %d", f.calls)
	}
}

func TestProvider_FetchErrorIsNotRemembered(t *testing.T) {
	fail := true
	f := &stubFetcher{listUsersFn: func(context.Context) ([]board.User, error) {
		if fail {
			return nil, errors.New("offline")
		}
		return []board.User{{ID: "1", Name: "Ada"}}, nil
	}}
	p := NewProvider(f, nil, nil)

	if _, err := p.Users(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	fail = false
	if got, err := p.Users(context.Background()); err != nil || len(got) != 1 {
		t.Fatalf("expected retry to succeed, got %v %v", got, err)
	}
}

func TestProvider_ReturnsCopies(t *testing.T) {
	p := NewProvider(fixedUsers(board.User{ID: "1", Name: "Ada"}), nil, nil)
	got, _ := p.Users(context.Background())
	got[0].Name = "changed"

	again, _ := p.Users(context.Background())
	if again[0].Name != "Ada" {
		t.Errorf("caller edits leaked into provider: %q", again[0].Name)
	}
}

func TestProvider_RedisMissThenHit(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	expected := []board.User{{ID: "1", Name: "Ada", Picture: "ada.png"}}

	f := fixedUsers(expected...)
	cache := NewRedisCache(client, "", time.Minute)
	if _, err := NewProvider(f, cache, nil).Users(ctx); err != nil {
		t.Fatalf("Users: %v", err)
	}
	if ttl := mr.TTL(DefaultRedisKey); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	// A new session answers from redis without touching the service.
	second := &stubFetcher{}
	got, err := NewProvider(second, cache, nil).Users(ctx)
	if err != nil {
		t.Fatalf("Users from cache: %v", err)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("unexpected cached users: %#v", got)
	}
	if second.calls != 0 {
		t.Errorf("expected no service call on cache hit, got %d", second.calls)
	}
}

func TestRedisCache_CorruptValueIsEvicted(t *testing.T) {
	mr, client := newRedis(t)
	if err := mr.Set(DefaultRedisKey, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f := fixedUsers(board.User{ID: "2", Name: "Bob"})
	got, err := NewProvider(f, NewRedisCache(client, "", 0), nil).Users(context.Background())
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected service fallback, got %+v", got)
	}
	if f.calls != 1 {
		t.Errorf("expected one service call, got %d", f.calls)
	}
	if mr.TTL(DefaultRedisKey) != 0 {
		t.Errorf("expected no TTL with ttl 0, got %v", mr.TTL(DefaultRedisKey))
	}
}

func TestStoreCache_HitAndExpiry(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	cache := NewStoreCache(s, time.Hour)
	if _, ok, err := cache.Get(ctx); ok || err != nil {
		t.Fatalf("expected miss on empty cache, got ok=%v err=%v", ok, err)
	}

	if err := cache.Put(ctx, []board.User{{ID: "1", Name: "Ada"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := cache.Get(ctx)
	if err != nil || !ok || len(got) != 1 || got[0].Name != "Ada" {
		t.Fatalf("expected hit, got %+v ok=%v err=%v", got, ok, err)
	}

	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok, _ := cache.Get(ctx); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestProvider_Lookup(t *testing.T) {
	p := NewProvider(fixedUsers(
		board.User{ID: "1", Name: "Ada"},
		board.User{ID: "2", Name: "Bob"},
	), nil, nil)
	ctx := context.Background()

	if u, err := p.Lookup(ctx, "2"); err != nil || u.Name != "Bob" {
		t.Errorf("lookup by id: %+v %v", u, err)
	}
	if u, err := p.Lookup(ctx, "ada"); err != nil || u.ID != "1" {
		t.Errorf("lookup by name: %+v %v", u, err)
	}
	if _, err := p.Lookup(ctx, "zed"); err == nil {
		t.Error("expected unknown user error")
	}
}

func TestProvider_RefreshRefetches(t *testing.T) {
	f := fixedUsers(board.User{ID: "1", Name: "Ada"})
	p := NewProvider(f, nil, nil)
	p.Users(context.Background())
	p.Refresh(context.Background())
	if f.calls != 2 {
		t.Errorf("expected refresh to hit the service, got %d calls", f.calls)
	}
}
