package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/passforge/wallet-sync-server/internal/api"
	"github.com/passforge/wallet-sync-server/internal/sync/coordinator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and background sync scheduler",
	Long: `Start the HTTP API server and the background scheduler that keeps every
enrolled user's wallet pass in sync with their membership barcode.

The server requires a configuration file (--config) that specifies:
- Storage backend for user records (file, postgres, or memory)
- Membership API endpoints and client credentials
- Wallet issuer settings and the service account key
- Sync scheduling policy`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 30 * time.Second // Enrollment does two upstream calls
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 35 * time.Second // Must exceed serverRequestTimeout
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		slog.Error("Failed to bind config flag", "error", err)
		os.Exit(1)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		slog.Error("Failed to mark config flag as required", "error", err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	comps, err := buildComponents(ctx, viper.GetString("config"))
	if err != nil {
		return err
	}

	address := comps.cfg.Address
	if flagAddress := viper.GetString("address"); flagAddress != "" {
		address = flagAddress
	}

	// Background scheduler: warm-up pass shortly after start, then a
	// fixed-interval ticker.
	syncCoordinator := coordinator.New(comps.engine,
		coordinator.WithInterval(comps.cfg.Sync.GetInterval()),
		coordinator.WithWarmupDelay(comps.cfg.Sync.GetWarmupDelay()),
	)
	if err := syncCoordinator.Start(ctx); err != nil {
		return err
	}

	router := api.NewServer(comps.store, comps.engine, comps.enrollment,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		slog.Info("Server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	if err := syncCoordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server shutdown complete")
	return nil
}
