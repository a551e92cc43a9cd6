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

	"github.com/claude/formcoach/internal/advisor"
	"github.com/claude/formcoach/internal/analysis"
	"github.com/claude/formcoach/internal/config"
	"github.com/claude/formcoach/internal/mcp"
	"github.com/claude/formcoach/internal/server"
	"github.com/claude/formcoach/internal/session"
	"github.com/claude/formcoach/internal/speech"
	"github.com/claude/formcoach/internal/storage"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("FormCoach starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := storage.RunMigrations(cfg.Cache.Path, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.Cache.Path)
	if err != nil {
		log.Error("failed to open cache database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("cache database opened", "path", cfg.Cache.Path)

	registry := analysis.NewRegistry()
	sessions := session.NewManager(registry, log)

	adv := advisor.New(advisor.Config{
		Endpoint:      cfg.Advisor.Endpoint,
		APIKey:        cfg.Advisor.APIKey,
		BufferSeconds: cfg.Advisor.BufferSeconds,
		FPS:           cfg.Advisor.FPS,
	}, log)

	tts := speech.New(speech.Config{
		APIKey:       cfg.Speech.APIKey,
		VoiceID:      cfg.Speech.VoiceID,
		ModelID:      cfg.Speech.ModelID,
		OutputFormat: cfg.Speech.OutputFormat,
	}, db, log)

	srv := server.New(sessions, adv, tts, cfg.Auth.APIKey, log)

	mcpSrv := mcp.New(sessions, Version, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server on a tsnet or plain TCP listener
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
	log.Info("server stopped")
}
