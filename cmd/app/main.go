package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"TG_rewards_bot/internal/api"
	"TG_rewards_bot/internal/bot"
	"TG_rewards_bot/internal/ledger"
	"TG_rewards_bot/internal/storage"
	"TG_rewards_bot/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.Storage)
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	rewardLedger := ledger.New(store, ledger.Config{
		DailyBonusPoints:    cfg.Rewards.DailyBonusPoints,
		ReferralBonusPoints: cfg.Rewards.ReferralBonusPoints,
		ChannelJoinPoints:   cfg.Rewards.ChannelJoinPoints,
		MinWithdrawPoints:   cfg.Rewards.MinWithdrawPoints,
	})
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = rewardLedger.Load(loadCtx)
	cancel()
	if err != nil {
		zapLogger.Fatal("Failed to load ledger state", zap.Error(err))
	}

	rewardBot, err := bot.New(cfg.Telegram.BotToken, rewardLedger, bot.Config{
		AdminID:             cfg.Telegram.AdminID,
		Currency:            cfg.Rewards.Currency,
		EarnLinks:           cfg.Rewards.EarnLinks,
		BroadcastInterval:   cfg.Broadcast.Interval(),
		BroadcastActiveOnly: cfg.Broadcast.ActiveOnly,
		Debug:               cfg.Telegram.Debug,
	})
	if err != nil {
		zapLogger.Fatal("Failed to initialize bot", zap.Error(err))
	}

	go rewardBot.Run(ctx)
	go rewardBot.StartAutoBroadcast(ctx)

	hub := api.NewEventHub()
	go hub.Run(ctx, rewardLedger.Events())

	router := api.NewRouter(rewardLedger, hub, cfg.Server.AdminToken)
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
