package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"thirdcoast.systems/airwave/cmd/airwave/internal/status"
	"thirdcoast.systems/airwave/cmd/airwave/internal/web"
	"thirdcoast.systems/airwave/internal/channel"
	"thirdcoast.systems/airwave/internal/config"
	"thirdcoast.systems/airwave/internal/logging"
	"thirdcoast.systems/airwave/internal/metrics"
	"thirdcoast.systems/airwave/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.InitLogger(conf.LogLevel, conf.LogFormat)

	slog.Info("Starting airwave relay")

	promReg := metrics.NewRegistry()
	relayMetrics := metrics.NewRelay(promReg)
	registry := channel.NewRegistry()
	hub := status.NewHub(conf.MaxStatusStreams)

	sessions := session.NewHandler(registry, relayMetrics, func(s channel.Stats) {
		hub.Publish(status.FromStats(s, time.Now().UTC()))
	})

	g, gctx := errgroup.WithContext(ctx)

	e, err := web.NewWebserver(gctx, conf, registry, sessions, hub, promReg)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	g.Go(func() error {
		slog.Info("Listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			// Stop was requested; an unfinished drain is not a failure.
			slog.Warn("Shutdown did not complete cleanly", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down cleanly")
}
