package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pillarday/pointsengine/pointsengine"
	"github.com/pillarday/pointsengine/pointsengine/backfill"
	"github.com/pillarday/pointsengine/pointsengine/database"
	"github.com/pillarday/pointsengine/pointsengine/database/repositories"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	dryRun := flag.Bool("dry-run", false, "report what would change without writing")
	kindsFlag := flag.String("kinds", "", "comma-separated subset of todos,habit_logs,actions (default all)")
	pageSize := flag.Int("page-size", 200, "entities per scan page")
	flag.Parse()

	cfg, err := pointsengine.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(cfg.Log.Handler()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}

	bunDB := db.BunDB()
	runner := backfill.NewRunner(backfill.Deps{
		Events:    repositories.NewPointEventRepository(bunDB),
		Pillars:   repositories.NewPillarRepository(bunDB),
		Habits:    repositories.NewHabitRepository(bunDB),
		Todos:     repositories.NewTodoRepository(bunDB),
		Actions:   repositories.NewActionRepository(bunDB),
		HabitLogs: repositories.NewHabitLogRepository(bunDB),
	}, *dryRun, *pageSize)

	var kinds []string
	if *kindsFlag != "" {
		for _, k := range strings.Split(*kindsFlag, ",") {
			kinds = append(kinds, strings.TrimSpace(k))
		}
	}

	summary, err := runner.Run(ctx, kinds)
	if err != nil {
		slog.Error("Backfill aborted", slog.Any("error", err))
		fmt.Printf("partial summary: %s\n", summary)
		os.Exit(-1)
	}

	mode := "apply"
	if *dryRun {
		mode = "dry-run"
	}
	fmt.Printf("backfill (%s): %s\n", mode, summary)

	if summary.Errors > 0 {
		os.Exit(1)
	}
}
