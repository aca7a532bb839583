package builder

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizintake/onboarding-backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App represents the application with all its components
type App struct {
	server          *http.Server
	db              *pgxpool.Pool
	logger          *zap.Logger
	shutdownTimeout time.Duration

	stopJanitor context.CancelFunc
}

// Run starts the application and all its daemons
func (a *App) Run() error {
	// Start HTTP server in goroutine
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	return a.shutdown()
}

// startJanitor periodically removes expired sessions from Postgres so the
// database store matches the in-memory store's TTL behavior.
func (a *App) startJanitor(store *repository.ConversationPostgres, ttl, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopJanitor = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.DeleteExpired(ctx, time.Now().UTC().Add(-ttl))
				if err != nil {
					a.logger.Warn("Session cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					a.logger.Info("Expired sessions removed", zap.Int64("count", removed))
				}
			}
		}
	}()
}

// shutdown gracefully shuts down the application
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	if a.stopJanitor != nil {
		a.stopJanitor()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		return err
	}

	a.logger.Info("Closing database connections")
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("Application stopped gracefully")
	return nil
}
