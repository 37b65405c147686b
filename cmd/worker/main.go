// Package main runs the background email worker: renders queued jobs, sends them over SMTP and
// records each outcome in email_logs.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/planmyoutings/backend/config"
	"github.com/planmyoutings/backend/internal/emaillogs"
	"github.com/planmyoutings/backend/internal/mailer"
	"github.com/planmyoutings/backend/internal/worker"
	"github.com/planmyoutings/backend/pkg/database"
	"github.com/planmyoutings/backend/pkg/queue"
	"github.com/planmyoutings/backend/pkg/redis"
)

const shutdownWait = 10 * time.Second

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender := mailer.NewSMTPSender(cfg.Email, logger)
	if !sender.Configured() {
		logger.Warn("SMTP_HOST not set; every email will fail and be logged as failed")
	}
	jobQueue := queue.NewQueue(rdb.Client, logger)
	if pending, dead, err := jobQueue.Len(ctx); err == nil {
		logger.Info("email queue", zap.Int64("pending", pending), zap.Int64("dead_lettered", dead))
	}
	processor := worker.NewEmailProcessor(sender, emaillogs.NewRepository(pool), jobQueue, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(ctx)
	}()
	logger.Info("email worker started", zap.String("env", cfg.Env))

	<-ctx.Done()
	select {
	case <-done:
	case <-time.After(shutdownWait):
		logger.Warn("email worker did not stop in time", zap.Duration("waited", shutdownWait))
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
