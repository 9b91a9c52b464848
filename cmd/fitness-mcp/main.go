package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/remyhonig/obsidian-fitness-sub000/internal/clock"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/config"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/library"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/mcp"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/session"
	"github.com/remyhonig/obsidian-fitness-sub000/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	daemonURL := flag.String("url", "", "daemon base URL (e.g. http://fitness)")
	configPath := flag.String("config", "", "config file for local mode (owns the store directly)")
	flag.Parse()

	// Stdout carries the MCP protocol; everything else goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	switch {
	case *daemonURL != "":
		runRemote(*daemonURL, log)
	case *configPath != "":
		runLocal(*configPath, log)
	default:
		fmt.Fprintf(os.Stderr, "Usage: fitness-mcp -url http://fitness | fitness-mcp -config config.yaml\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
}

// runRemote forwards every tool call to a running daemon's REST API.
func runRemote(url string, log *slog.Logger) {
	client := mcp.NewHTTPClient(url)
	s := mcp.New(client, client, Version, log)

	log.Info("mcp server starting", "mode", "remote", "url", url)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}

// runLocal runs the session engine inside this process, against the
// configured store and vault. Meant for setups without a daemon; do not
// point it at a store a running daemon is using.
func runLocal(configPath string, log *slog.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var store storage.Store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := storage.OpenPostgres(ctx, cfg.Store.Database.DSN())
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

	lib, err := library.Open(cfg.Vault.WorkoutsPath(), log)
	if err != nil {
		log.Error("failed to load template library", "error", err)
		os.Exit(1)
	}
	defer lib.Close()

	engine := session.NewManager(clock.System(), store, cfg.Session, log)
	if err := engine.Restore(ctx); err != nil {
		log.Error("failed to restore active session", "error", err)
		os.Exit(1)
	}

	local := mcp.NewLocal(engine, store, lib)
	s := mcp.New(local, local, Version, log)

	log.Info("mcp server starting", "mode", "local", "driver", cfg.Store.Driver)
	serveErr := server.ServeStdio(s)

	// Flush a session started over MCP so the daemon can restore it later.
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := engine.Close(closeCtx); err != nil {
		log.Error("engine close error", "error", err)
	}

	if serveErr != nil {
		log.Error("mcp server stopped", "error", serveErr)
		os.Exit(1)
	}
}
