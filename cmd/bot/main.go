package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/coconet/starshop/internal/api"
	"github.com/coconet/starshop/internal/config"
	"github.com/coconet/starshop/internal/profile"
	"github.com/coconet/starshop/internal/rates"
	"github.com/coconet/starshop/internal/storage"
	"github.com/coconet/starshop/internal/telegram"
)

func main() {
	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(log)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found")
	}

	// Load config
	cfg := config.Load()

	// Initialize storage
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Initialize rates client
	ratesClient := rates.NewClient(cfg.RatesBaseURL, cfg.TonUSDFallback)

	// Initialize telegram bot; missing token or admin id disables the bot
	// subsystem but keeps the HTTP API up
	var tgBot *telegram.Bot
	if cfg.BotEnabled() {
		tgBot, err = telegram.New(cfg, store, ratesClient, log)
		if err != nil {
			log.Error("init telegram bot", "error", err)
			os.Exit(1)
		}
		log.Info("telegram bot initialized", "admin_chat", cfg.AdminChatID, "moderators", len(cfg.ModeratorIDs))
	} else {
		log.Warn("BOT_TOKEN or ADMIN_CHAT_ID missing, bot features disabled")
	}

	// Initialize profile lookup
	var chatAPI profile.ChatAPI
	var notifier api.AdminNotifier
	if tgBot != nil {
		chatAPI = tgBot.GetBot()
		notifier = tgBot
	}
	profiles := profile.NewService(cfg.ProfileBaseURL, chatAPI, store, log)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start API server
	apiServer := api.NewServer(store, profiles, notifier, log)
	go func() {
		if err := apiServer.Start(ctx, cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Error("api server", "error", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	if tgBot == nil {
		<-ctx.Done()
		return
	}

	// Start bot polling
	log.Info("starting bot polling...")
	tgBot.Start(ctx)
}
