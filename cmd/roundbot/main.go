package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"FirmSim/internal/config"
	"FirmSim/internal/notifier"
	"FirmSim/internal/round"
	"FirmSim/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] FirmSim round bot starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init store
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	defer st.Close()

	// Telegram is optional; without it reports only go to the log
	var tn *notifier.TelegramNotifier
	var rn round.Notifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		rn = tn
	} else {
		log.Println("[WARN] telegram.bot_token not set, notifications disabled")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rounds := round.NewOrchestrator(ctx, st, rn)

	// Create the configured game on first start
	gameID := cfg.Game.ID
	if _, err := st.GetGame(gameID); errors.Is(err, store.ErrNotFound) {
		if err := rounds.NewGame(cfg.NewGame()); err != nil {
			log.Fatalf("[FATAL] create game: %v", err)
		}
	} else if err != nil {
		log.Fatalf("[FATAL] load game: %v", err)
	}

	// Init scheduler
	sched := round.NewScheduler(ctx, rounds, gameID)
	if err := sched.RegisterAll(cfg.Schedule.CloseCron, cfg.Schedule.ClearCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: open the first round immediately
	if os.Getenv("OPEN_ON_START") == "true" {
		log.Println("[INFO] OPEN_ON_START enabled, opening the next round")
		if err := rounds.Advance(gameID); err != nil {
			log.Printf("[WARN] open round: %v", err)
		}
	}

	log.Printf("[INFO] FirmSim is running game %s. Press Ctrl+C to stop.", gameID)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FirmSim stopped")
}
