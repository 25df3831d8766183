package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raffaelramalhorosa/bunker-status/internal/api"
	"github.com/raffaelramalhorosa/bunker-status/internal/config"
	"github.com/raffaelramalhorosa/bunker-status/internal/discord"
	"github.com/raffaelramalhorosa/bunker-status/internal/fetcher"
	"github.com/raffaelramalhorosa/bunker-status/internal/ratelimit"
	"github.com/raffaelramalhorosa/bunker-status/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// --- Configuration ---
	cfg, err := config.Load("")
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		logger.Error("config validation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"token_set", cfg.Discord.Token != "",
		"channel_id", cfg.Discord.ChannelID,
		"cooldown", cfg.Server.Cooldown,
		"mock", cfg.Server.UseMock,
	)
	if cfg.Discord.Token == "" || cfg.Discord.ChannelID == "" {
		logger.Warn("DISCORD_TOKEN or DISCORD_CHANNEL_ID not set, /api/bunkers will fail until configured")
	}

	// --- Dependencies ---
	st := store.New()
	gate := ratelimit.NewGate(cfg.Server.Cooldown)
	dc := discord.New(cfg.Discord.APIURL, cfg.Discord.Token, logger)
	fetch := fetcher.New(fetcher.Config{
		Token:     cfg.Discord.Token,
		ChannelID: cfg.Discord.ChannelID,
		Limit:     cfg.Discord.MessageLimit,
		UseMock:   cfg.Server.UseMock,
	}, dc, gate, st, logger)
	srv := api.New(fetch, st, logger)

	// --- HTTP server ---
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func init() {
	fmt.Println(`
  ____              _                ____  _        _
 | __ ) _   _ _ __ | | _____ _ __   / ___|| |_ __ _| |_ _   _ ___
 |  _ \| | | | '_ \| |/ / _ \ '__|  \___ \| __/ _' | __| | | / __|
 | |_) | |_| | | | |   <  __/ |      ___) | || (_| | |_| |_| \__ \
 |____/ \__,_|_| |_|_|\_\___|_|     |____/ \__\__,_|\__|\__,_|___/
	`)
}
