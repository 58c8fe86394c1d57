package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gridmatch/internal/bus"
	"github.com/mcdev12/gridmatch/internal/game"
	"github.com/mcdev12/gridmatch/internal/gateway"
	"github.com/mcdev12/gridmatch/internal/match"
	"github.com/mcdev12/gridmatch/internal/store"
	"github.com/mcdev12/gridmatch/internal/timer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Each process gets its own identity for the timer lease.
	instanceID := uuid.New().String()[:8]

	log.Info().
		Str("instance", instanceID).
		Str("redis_addr", cfg.Redis.Addr).
		Str("nats_url", cfg.NATS.URL).
		Str("port", cfg.Port).
		Msg("starting match coordinator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the shared store
	storeCfg := store.DefaultClientConfig()
	storeCfg.Addr = cfg.Redis.Addr
	storeCfg.Password = cfg.Redis.Password
	storeCfg.DB = cfg.Redis.DB

	rdb, err := store.NewClient(ctx, storeCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer rdb.Close()

	// Connect to the shared bus
	busCfg := bus.DefaultConfig()
	busCfg.URL = cfg.NATS.URL

	nc, err := bus.Connect(busCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to bus")
	}
	defer nc.Close()

	publisher := bus.NewPublisher(nc)
	subscriber := bus.NewSubscriber(nc)
	defer subscriber.Close()

	// Core services
	repo := store.NewRepository(rdb, cfg.Timer.DefaultSeconds)
	games := game.NewService(repo, publisher)
	matchmaker := match.NewCoordinator(repo, publisher, games)
	timerSvc := timer.NewService(repo, publisher, games, cfg.Timer.DefaultSeconds)

	// Timer authority: every process runs a ticker, one holds the lease.
	lease := store.NewLeaderLease(rdb, instanceID, time.Duration(cfg.Timer.LeaseTTLMillis)*time.Millisecond)
	ticker := timer.NewTicker(timerSvc, lease, clockwork.NewRealClock(), instanceID)
	go func() {
		if err := ticker.Run(ctx); err != nil {
			log.Error().Err(err).Msg("timer ticker failed")
		}
	}()

	// Gateway
	gw := gateway.NewService(gateway.DefaultConnectionConfig(), repo, matchmaker, games, timerSvc)
	go func() {
		if err := gw.Start(ctx, subscriber); err != nil {
			log.Error().Err(err).Msg("gateway failed")
		}
	}()

	// HTTP server
	server := setupServer(cfg, gw)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Cancel the ticker and gateway; the ticker releases the timer lease on
	// its way out so a standby process can take over immediately.
	cancel()
	time.Sleep(time.Second)

	log.Info().Msg("match coordinator shutdown complete")
}
