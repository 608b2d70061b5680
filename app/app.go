// Package app wires configuration, storage, content and the game loop into
// a running game for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nathoo/idlecore/config"
	"github.com/nathoo/idlecore/engine"
	"github.com/nathoo/idlecore/engine/sched"
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/loader"
	"github.com/nathoo/idlecore/storage"
)

// App is a started game running on its own loop goroutine.
type App struct {
	Game    *engine.Game
	Defs    *state.Defs
	Backend storage.Backend

	log    *slog.Logger
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
}

// Start opens the save backend, loads content, resumes the autosave slot
// and starts the game timers.
func Start(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open save backend: %w", err)
	}

	defs, err := loader.LoadOrDefault(cfg.ContentDir, logger)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("load content: %w", err)
	}

	loop := sched.NewLoop()
	loopCtx, cancel := context.WithCancel(context.Background())
	a := &App{
		Defs:    defs,
		Backend: backend,
		log:     logger,
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() { a.done <- loop.Run(loopCtx) }()

	g, err := engine.New(defs, engine.Options{
		Seed:             cfg.Seed,
		Scheduler:        loop,
		Runner:           loop,
		Saves:            backend,
		Slot:             cfg.SaveSlot,
		AutosaveInterval: cfg.AutosaveInterval,
		Logger:           logger,
	})
	if err != nil {
		a.stopLoop()
		backend.Close()
		return nil, fmt.Errorf("create game: %w", err)
	}
	a.Game = g

	g.Resume(ctx)
	if err := g.Start(); err != nil {
		a.stopLoop()
		backend.Close()
		return nil, fmt.Errorf("start game: %w", err)
	}
	logger.Info("game ready", "title", defs.Game.Title, "backend", cfg.SaveBackend, "slot", cfg.SaveSlot)
	return a, nil
}

func (a *App) stopLoop() {
	a.cancel()
	if err := <-a.done; err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("game loop exited", "err", err)
	}
}

// Close writes a final save, stops the loop and closes the backend. It is
// safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	var err error
	a.once.Do(func() {
		if serr := a.Game.Stop(ctx); serr != nil {
			a.log.Warn("final save failed", "err", serr)
			err = serr
		}
		a.stopLoop()
		if cerr := a.Backend.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close save backend: %w", cerr))
		}
	})
	return err
}
