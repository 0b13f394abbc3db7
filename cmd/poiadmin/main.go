// Command poiadmin serves the POI admin backend that guide devices sync from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"foodstreet/internal/admin"
	"foodstreet/pkg/config"
	"foodstreet/pkg/db"
	"foodstreet/pkg/logging"
	"foodstreet/pkg/store"
	"foodstreet/pkg/version"
)

var (
	configPath = flag.String("config", "configs/foodstreet.yaml", "Path to the config file")
	addr       = flag.String("addr", "", "Listen address, overrides admin.address")
)

func main() {
	flag.Parse()
	if err := run(context.Background(), *configPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: POI admin failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, addrOverride string) error {
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := appCfg.Admin
	if addrOverride != "" {
		cfg.Address = addrOverride
	}
	if p := strings.TrimSpace(os.Getenv(config.EnvAdminDBPath)); p != "" {
		cfg.DBPath = p
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	dbConn, err := db.Init(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize admin database: %w", err)
	}
	defer dbConn.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	slog.Info("POI Admin Started", "version", version.Version, "db", cfg.DBPath, "uploads", cfg.UploadDir)
	srv := admin.NewServer(cfg, admin.NewShopHandler(store.NewSQLiteStore(dbConn), cfg.UploadDir))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Starting admin server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down admin server...")
	case <-ctx.Done():
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
