// Package main is the entry point for the statement relay.
//
// On every schedule tick the relay lists the bank extract files due today,
// parses them into statements and delivers them in small batches to every
// configured destination, one request at a time.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aristath/extrato-relay/internal/config"
	"github.com/aristath/extrato-relay/internal/di"
	"github.com/aristath/extrato-relay/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	log.Info().
		Str("schedule", cfg.CronSpec).
		Str("timezone", cfg.ScheduleTimezone).
		Msg("Starting statement relay")

	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Start status server
	if container.Server != nil {
		go func() {
			if err := container.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Failed to start server")
			}
		}()
	}

	container.Scheduler.Start()

	if cfg.RunOnStart {
		go func() {
			if err := container.Scheduler.RunNow(jobs.Relay); err != nil {
				log.Error().Err(err).Msg("Start-up run failed")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Graceful shutdown: the status server gets 10 seconds, then the
	// scheduler waits for an in-flight run to finish.
	if container.Server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := container.Server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		shutdownCancel()
	}

	container.Scheduler.Stop()

	log.Info().Msg("Relay stopped")
}
