package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailscale.com/tsnet"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/config"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/library"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/server"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit (postgres driver)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("fitnessd starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))

	ctx := context.Background()

	// Open the store. SQLite applies its schema on open; postgres runs
	// file-based migrations first.
	var store storage.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		dsn := cfg.Store.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err := storage.OpenPostgres(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		store = db
	default:
		if *migrateOnly {
			log.Info("migrate-only: nothing to do for sqlite")
			return
		}
		s, err := storage.OpenSQLite(cfg.Store.Path)
		if err != nil {
			log.Error("failed to open store", "path", cfg.Store.Path, "error", err)
			os.Exit(1)
		}
		store = s
	}
	defer store.Close()
	log.Info("store opened", "driver", cfg.Store.Driver)

	// Template library with live reload from the vault.
	lib, err := library.Open(cfg.Vault.WorkoutsPath(), log)
	if err != nil {
		log.Error("failed to load template library", "error", err)
		os.Exit(1)
	}
	defer lib.Close()

	// Session engine. Restore picks up a workout that survived a restart.
	engine := session.NewManager(clock.System(), store, cfg.Session, log)
	if err := engine.Restore(ctx); err != nil {
		log.Error("failed to restore active session", "error", err)
		os.Exit(1)
	}

	// Push template edits into a freshly started session. A session in
	// progress never mutates under the user.
	lib.SetReloadCallback(func() {
		sess := engine.ActiveSession()
		if sess == nil || sess.WorkoutRef == "" || engine.IsInProgress() {
			return
		}
		tpl, ok := lib.Get(sess.WorkoutRef)
		if !ok {
			return
		}
		if err := engine.UpdateExercises(tpl.Exercises); err != nil {
			log.Warn("template reload not applied", "template", sess.WorkoutRef, "error", err)
		}
	})
	if err := lib.Watch(); err != nil {
		log.Warn("template watcher unavailable", "error", err)
	}

	srv := server.New(engine, store, lib, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	// Stop timers and flush any pending autosave before the store closes.
	if err := engine.Close(shutdownCtx); err != nil {
		log.Error("engine close error", "error", err)
	}
	log.Info("server stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
