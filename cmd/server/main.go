/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the driver payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, file, PAYROLL_* env, then flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Register stored tax profiles, then the configured one if any
  5. Seed the standard rate table on an empty database
  6. Create API handler, warm the rate cache, start the refresh scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional config file (yaml, json, toml)
  -port    HTTP server port, overrides PAYROLL_PORT
  -db      SQLite database path, overrides PAYROLL_DB
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the rate refresh scheduler
  4. Close database connection

EXAMPLES:
  ./server -db="./data/payroll.db"
  PAYROLL_TAX_PROFILE=/etc/payroll/nb.json ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/driver-payroll/api"
	"github.com/warp/driver-payroll/config"
	"github.com/warp/driver-payroll/factory"
	"github.com/warp/driver-payroll/logger"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/store/sqlite"
	"github.com/warp/driver-payroll/tax"
)

func main() {
	configPath := flag.String("config", "", "Optional config file")
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "payroll.db", "SQLite database path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DBPath = *dbPath
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if err := registerTaxProfiles(ctx, store, cfg.TaxProfile, log); err != nil {
		return err
	}
	if err := seedRateTable(ctx, store, log); err != nil {
		return err
	}

	handler, err := api.NewHandler(store, log, cfg.RateCacheSize)
	if err != nil {
		return err
	}
	if err := handler.LoadRateTables(ctx); err != nil {
		log.Warn("failed to load rate tables", zap.Error(err))
	}

	refresher := api.NewRateRefreshScheduler(handler, cfg.RateRefresh)
	refresher.Start()
	defer refresher.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down server", zap.Stringer("signal", sig))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// registerTaxProfiles makes stored profiles available to tax.Lookup. A
// profile file, when configured, is stored and registered on top.
func registerTaxProfiles(ctx context.Context, store *sqlite.Store, path string, log *zap.Logger) error {
	stored, err := store.ListTaxProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tax profiles: %w", err)
	}
	for code, p := range stored {
		tax.Register(code, p)
	}

	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tax profile: %w", err)
	}
	p, err := factory.NewConfigFactory().ParseTaxProfile(string(raw))
	if err != nil {
		return fmt.Errorf("invalid tax profile %s: %w", path, err)
	}
	if err := store.SaveTaxProfile(ctx, p.Name(), p); err != nil {
		return err
	}
	tax.Register(p.Name(), p)

	log.Info("tax profile registered", zap.String("code", p.Name()), zap.Stringer("total_rate", p.TotalRate()))
	return nil
}

// seedRateTable saves the standard table when the database has none.
func seedRateTable(ctx context.Context, store *sqlite.Store, log *zap.Logger) error {
	_, err := store.GetRateTable(ctx, factory.DefaultRateTableID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, payroll.ErrRateTableNotFound) {
		return err
	}

	table, err := factory.NewConfigFactory().ParseRateTable(factory.DefaultRateTableJSON())
	if err != nil {
		return err
	}
	if err := store.SaveRateTable(ctx, table); err != nil {
		return err
	}
	log.Info("seeded rate table", zap.String("table_id", table.ID))
	return nil
}
