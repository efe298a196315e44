package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/flavortown/credvault/internal/app"
	"github.com/flavortown/credvault/internal/config"
)

// shutdownTimeout bounds how long in-flight requests may take to drain.
const shutdownTimeout = 30 * time.Second

// RunServer starts the vault API and metrics servers with graceful shutdown
// support, plus a periodic sweep of expired session cache entries. Blocks
// until SIGINT/SIGTERM or a fatal server error. On shutdown, the session
// cache is closed so no derived key survives in memory.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Expired sessions are already unusable on access; the sweep just
	// releases their zeroed memory on a schedule.
	sweeper := cron.New()
	_, err = sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.SessionSweepInterval), func() {
		if evicted := container.SessionCache().Sweep(); evicted > 0 {
			logger.Debug("session cache sweep", slog.Int("evicted", evicted))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}
