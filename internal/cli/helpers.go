package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/config"
	"github.com/imkarma/taskboard/internal/logging"
	"github.com/imkarma/taskboard/internal/service"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/imkarma/taskboard/internal/users"
)

const boardDirName = ".taskboard"

// boardPath returns the path to a file inside .taskboard/.
func boardPath(parts ...string) string {
	elems := append([]string{boardDirName}, parts...)
	return filepath.Join(elems...)
}

// mustStore opens the store, returning an error if taskboard is not initialized.
func mustStore() (*store.Store, error) {
	dbPath := boardPath("taskboard.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("taskboard not initialized. Run: taskboard init")
	}
	return openStore(dbPath)
}

// openStore opens or creates the SQLite store at the given path.
func openStore(dbPath string) (*store.Store, error) {
	return store.New(dbPath)
}

// app bundles everything a command needs to talk to the task service.
type app struct {
	cfg     *config.Config
	store   *store.Store
	log     *log.Logger
	client  *service.Client
	users   *users.Provider
	engine  *board.Engine
	closers []io.Closer
}

// openApp loads config, opens the store and log file, and wires the
// client, user provider and board engine.
func openApp() (*app, error) {
	config.LoadEnv()

	cfg, err := config.Load(boardPath("config.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("taskboard not initialized. Run: taskboard init")
		}
		return nil, err
	}

	s, err := mustStore()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: s, closers: []io.Closer{s}}

	logger, logFile, err := logging.Setup(cfg.Log, boardDirName, debugFlag)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.log = logger
	a.closers = append(a.closers, logFile)

	token := cfg.Service.Token()
	if token == "" {
		logger.Warn("no auth token configured; requests will likely be rejected")
	}
	a.client = service.New(service.Config{
		BaseURL:   cfg.Service.BaseURL,
		AuthToken: token,
		Timeout:   cfg.Service.Timeout(),
	}, logger)

	cache, err := a.userCache()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.users = users.NewProvider(a.client, cache, logger)

	a.engine = board.New(a.client, board.Options{
		Policy:  cfg.Policy(),
		Journal: s,
		Logger:  logger,
	})
	return a, nil
}

// userCache builds the configured cache backend.
func (a *app) userCache() (users.Cache, error) {
	uc := a.cfg.UsersCache
	switch uc.Backend {
	case "none":
		return nil, nil
	case "redis":
		opts, err := redis.ParseURL(uc.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("users_cache: %w", err)
		}
		client := redis.NewClient(opts)
		a.closers = append(a.closers, client)
		return users.NewRedisCache(client, uc.RedisKey, uc.CacheTTL()), nil
	default:
		return users.NewStoreCache(a.store, uc.CacheTTL()), nil
	}
}

// Close releases everything openApp acquired, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// parsePriority accepts a lane name (high, medium, normal, low, done) or a
// wire priority ("0".."3").
func parsePriority(s string) (board.Priority, error) {
	if l, ok := board.ParseLane(s); ok {
		return l.Priority(), nil
	}
	p := board.Priority(s)
	if _, err := board.Classify(p); err != nil {
		return "", err
	}
	return p, nil
}

// parseDue reads a YYYY-MM-DD date in local time.
func parseDue(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}
