package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/adapters/broker"
	"github.com/curaline/consult/internal/adapters/chatws"
	"github.com/curaline/consult/internal/adapters/engine"
	router "github.com/curaline/consult/internal/adapters/http"
	"github.com/curaline/consult/internal/adapters/summary"
	"github.com/curaline/consult/internal/app"
	"github.com/curaline/consult/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	deps := app.Deps{
		Broker:  broker.NewClient(cfg.BrokerBaseURL, cfg.BrokerTimeout),
		Engines: engine.Factory{},
		Channels: &chatws.Factory{Opts: chatws.Options{
			URL:                cfg.SignalURL,
			SendBuffer:         cfg.ChatSendBuffer,
			ReconnectAttempts:  cfg.ChatReconnectAttempts,
			ReconnectBaseDelay: cfg.ChatReconnectBaseDelay,
		}},
		Summarizer: summary.NewClient(cfg.SummaryURL, 0),
	}
	mgr := app.NewManager(deps, app.Options{
		AudioAffinity:  cfg.AudioAffinity,
		BrokerTimeout:  cfg.BrokerTimeout,
		EventQueueSize: cfg.EventQueueSize,
	})

	r := router.SetupRouter(cfg, mgr)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("consult server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Forced exit for every live session runs the same teardown as a
	// user-initiated exit; hardware release must not be skipped.
	mgr.Shutdown(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
