package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperengineering/cadence/internal/config"
	"github.com/hyperengineering/cadence/internal/docstore"
	"github.com/hyperengineering/cadence/internal/notify"
	"github.com/hyperengineering/cadence/internal/service"
)

var (
	backendOverride  string
	dbPathOverride   string
	storeDirOverride string
)

// applyStoreOverrides lets the persistent flags win over config and env.
func applyStoreOverrides(cfg *config.Config) {
	if backendOverride != "" {
		cfg.Store.Backend = backendOverride
	}
	if dbPathOverride != "" {
		cfg.Store.Path = dbPathOverride
	}
	if storeDirOverride != "" {
		cfg.Store.Dir = storeDirOverride
	}
}

// openStore opens the configured document store backend.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	var (
		store docstore.Store
		err   error
	)
	switch cfg.Store.Backend {
	case docstore.BackendSQLite:
		var s *docstore.SQLiteStore
		if s, err = docstore.NewSQLiteStore(cfg.Store.Path); err == nil {
			store = s
		}
	case docstore.BackendRedis:
		var s *docstore.RedisStore
		s, err = docstore.NewRedisStore(ctx, docstore.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		})
		if err == nil {
			store = s
		}
	case docstore.BackendFile:
		var s *docstore.FileStore
		if s, err = docstore.NewFileStore(cfg.Store.Dir); err == nil {
			store = s
		}
	case docstore.BackendMemory:
		store = docstore.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return store, nil
}

// openTracker builds a tracker over store and loads it, running the
// startup rollover pass.
func openTracker(ctx context.Context, cfg *config.Config, store docstore.Store) (*service.Tracker, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	tracker := service.New(service.Options{
		Store:     store,
		Scheduler: notify.NewLogScheduler(),
		Location:  loc,
	})
	if _, err := tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("load tracker: %w", err)
	}
	return tracker, nil
}

// openLocal loads offline config with flag overrides and opens the store
// and tracker. The caller closes the returned store.
func openLocal(ctx context.Context) (*config.Config, docstore.Store, *service.Tracker, error) {
	cfg, err := config.LoadLocal()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyStoreOverrides(cfg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	tracker, err := openTracker(ctx, cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return cfg, store, tracker, nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
