package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/talkabout/internal/adapters/http"
	"github.com/dkeye/talkabout/internal/app"
	"github.com/dkeye/talkabout/internal/app/orch"
	"github.com/dkeye/talkabout/internal/app/waitroom"
	"github.com/dkeye/talkabout/internal/config"
	"github.com/dkeye/talkabout/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	slots, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := slots.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()
	if seeds := cfg.Seeds(); len(seeds) > 0 {
		if err := slots.Seed(ctx, seeds...); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		log.Info().Int("slots", len(seeds)).Msg("store seeded")
	}

	// rooms and websockets outlive the signal context so shutdown can close
	// them after the HTTP server stops accepting.
	connCtx, stopConns := context.WithCancel(context.Background())
	defer stopConns()

	rooms := waitroom.NewRegistry(connCtx, slots,
		waitroom.WithSettings(cfg.Settings()),
		waitroom.WithMinter(waitroom.NewJitsiMinter(cfg.Launch.CallBaseURL, cfg.Launch.RoomPrefix)),
		waitroom.WithPolicy(app.SimplePolicy{}),
	)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Slots:    slots,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(connCtx, cfg, o),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("talkabout waiting-room server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := rooms.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("rooms did not stop in time")
		}
		stopConns()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
