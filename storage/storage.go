// Package storage opens the save-slot backend named by the configuration.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nathoo/idlecore/config"
	"github.com/nathoo/idlecore/engine/save"
	"github.com/nathoo/idlecore/storage/gormrepo"
	"github.com/nathoo/idlecore/storage/memory"
	"github.com/nathoo/idlecore/storage/rediskv"
	"github.com/nathoo/idlecore/storage/sqlite"
)

// Backend is an open save repository that holds resources.
type Backend interface {
	save.Repository
	io.Closer
}

// Open returns the repository for cfg.SaveBackend.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.SaveBackend {
	case config.BackendMemory:
		return nopClose{memory.NewRepo()}, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite saves: %w", err)
		}
		logger.Info("save backend ready", "backend", "sqlite", "path", cfg.SQLitePath)
		return s, nil
	case config.BackendRedis:
		r, err := rediskv.Open(ctx, rediskv.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis saves: %w", err)
		}
		logger.Info("save backend ready", "backend", "redis", "addr", cfg.RedisAddr)
		return r, nil
	case config.BackendPostgres:
		db, err := gormrepo.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres saves: %w", err)
		}
		r, err := gormrepo.New(ctx, db)
		if err != nil {
			return nil, fmt.Errorf("open postgres saves: %w", err)
		}
		logger.Info("save backend ready", "backend", "postgres")
		return r, nil
	}
	return nil, fmt.Errorf("unknown save backend %q", cfg.SaveBackend)
}

type nopClose struct{ save.Repository }

func (nopClose) Close() error { return nil }
