package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/config"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/ingest/strengthlog"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "path to StrengthLog export (required)")
	dryRun := flag.Bool("dry-run", false, "report sessions without writing to the store")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: fitness-import -config config.yaml -file export.csv [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Error("failed to open export", "path", *filePath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	sessions, err := strengthlog.Parse(f)
	if err != nil {
		log.Error("parse failed", "error", err)
		os.Exit(1)
	}
	log.Info("export parsed", "sessions", len(sessions))

	if *dryRun {
		for _, sess := range sessions {
			log.Info("would archive session",
				"date", sess.Date,
				"workout", sess.WorkoutRef,
				"exercises", len(sess.Exercises),
				"sets", sess.CountCompletedSets(),
			)
		}
		log.Info("DRY RUN — nothing written")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var store storage.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		dsn := cfg.Store.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		db, err := storage.OpenPostgres(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		store = db
	default:
		s, err := storage.OpenSQLite(cfg.Store.Path)
		if err != nil {
			log.Error("failed to open store", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		store = s
	}
	defer store.Close()

	archived := 0
	for _, sess := range sessions {
		if err := store.ArchiveSession(ctx, sess); err != nil {
			log.Error("archive failed", "date", sess.Date, "workout", sess.WorkoutRef, "error", err)
			os.Exit(1)
		}
		log.Info("archived session",
			"date", sess.Date,
			"workout", sess.WorkoutRef,
			"exercises", len(sess.Exercises),
			"sets", sess.CountCompletedSets(),
		)
		archived++
	}

	log.Info("import complete", "sessions", archived)
}
