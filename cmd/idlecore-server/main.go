// idlecore-server runs the idle game headless, exposing the command API over
// HTTP and a live event feed over websocket.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/nathoo/idlecore/app"
	"github.com/nathoo/idlecore/config"
	"github.com/nathoo/idlecore/logging"
	"github.com/nathoo/idlecore/transport/httpapi"
	"github.com/nathoo/idlecore/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger, closer, err := logging.Setup(cfg, nil)
	if err != nil {
		slog.Error("setup logging", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	a, err := app.Start(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	hub := ws.NewHub(a.Game, logger.With("component", "ws"))
	hub.Attach(true)
	defer hub.Detach()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handle)
	feed := &http.Server{Addr: cfg.WSAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("event feed listening", "addr", cfg.WSAddr)
		if err := feed.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("event feed stopped", "err", err)
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = feed.Shutdown(ctx)
	}()

	h := httpapi.Handler{Game: a.Game, Logger: logger.With("component", "http")}
	s := server.Default(server.WithHostPorts(cfg.HTTPAddr))
	h.RegisterRoutes(s)

	logger.Info("command api listening", "addr", cfg.HTTPAddr)
	// Spin blocks until SIGINT or SIGTERM, then shuts the server down.
	s.Spin()
	return nil
}
