// Package main runs the background notification worker (email delivery).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/campus-pulse/backend/config"
	"github.com/campus-pulse/backend/internal/notifications"
	"github.com/campus-pulse/backend/internal/worker"
	"github.com/campus-pulse/backend/pkg/database"
	"github.com/campus-pulse/backend/pkg/mailer"
	"github.com/campus-pulse/backend/pkg/queue"
	"github.com/campus-pulse/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var m mailer.Mailer
	if cfg.Email.APIKey != "" {
		m = mailer.NewSendGrid(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress)
		logger.Info("sendgrid mailer configured", zap.String("from", cfg.Email.FromAddress))
	} else {
		m = mailer.NewConsole(logger)
		logger.Info("no email api key, using console mailer")
	}

	notifRepo := notifications.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewEmailProcessor(notifRepo, m, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
