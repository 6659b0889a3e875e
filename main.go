package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pillarday/pointsengine/pointsengine"
	"github.com/pillarday/pointsengine/pointsengine/database"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := pointsengine.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(cfg.Log.Handler()))

	slog.Info("Starting points reconciliation engine",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	e := pointsengine.New(*cfg, version, commit)
	e.DB = db
	defer e.Close()

	if err := e.Setup(); err != nil {
		slog.Error("Engine setup failed",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("status", "failed"))
		os.Exit(-1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return e.Run(gCtx)
	})

	slog.Info("Engine is running. Press CTRL-C to exit.",
		slog.String("type", "feed"))

	<-gCtx.Done()
	slog.Info("Shutting down engine...")

	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("Engine stopped with error",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}
}
