// Command aquatrackd runs the AquaTrack billing API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/audithook"
	"github.com/dee-mee/aquatrack/auth"
	"github.com/dee-mee/aquatrack/config"
	"github.com/dee-mee/aquatrack/httpapi"
	"github.com/dee-mee/aquatrack/store"
	"github.com/dee-mee/aquatrack/store/memory"
	"github.com/dee-mee/aquatrack/store/mongo"
	"github.com/dee-mee/aquatrack/store/postgres"
	"github.com/dee-mee/aquatrack/store/sqlite"
	"github.com/dee-mee/aquatrack/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found; relying on existing environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("init store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	audit := audithook.New(audithook.RecorderFunc(
		func(_ context.Context, event *audithook.AuditEvent) error {
			logger.Info("audit",
				slog.String("action", event.Action),
				slog.String("resource", event.Resource),
				slog.String("resource_id", event.ResourceID),
				slog.String("outcome", event.Outcome),
			)
			return nil
		},
	), audithook.WithLogger(logger))

	ledger := aquatrack.New(s,
		aquatrack.WithLogger(logger),
		aquatrack.WithPlugin(audit),
		aquatrack.WithStandardRate(types.KES(cfg.RateCentsPerUnit)),
		aquatrack.WithDueIn(time.Duration(cfg.DueInDays)*24*time.Hour),
		aquatrack.WithOverdueSweepInterval(cfg.OverdueSweepInterval),
	)

	if err := ledger.Start(ctx); err != nil {
		logger.Error("start engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ledger.Stop()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handler := httpapi.NewHandler(ledger, tokens, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("aquatrack listening",
			slog.String("addr", cfg.HTTPAddress()),
			slog.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.String("error", err.Error()))
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverMongo:
		return mongo.Connect(ctx, cfg.DatabaseURL, cfg.MongoDBName)
	default:
		return memory.New(), nil
	}
}
