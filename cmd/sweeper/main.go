package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/examnotify/exam-api/config"
	"github.com/examnotify/exam-api/internal/channel"
	"github.com/examnotify/exam-api/internal/repository/postgres"
	notificationService "github.com/examnotify/exam-api/internal/service/notification"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/messaging/redis"
	"github.com/examnotify/exam-api/pkg/metrics"
	"github.com/examnotify/exam-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry, cfg.Monitoring.Namespace)

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)

	senders := []channel.Sender{
		channel.NewEmailSender(cfg.SMTP),
		channel.NewSMSSender(cfg.SMS),
		channel.NewInAppSender(broker),
	}

	notificationSvc := notificationService.NewService(notificationRepo, userRepo, senders, appMetrics, appLogger)

	sweeper := worker.NewSweeper(notificationSvc, worker.SweeperConfig{
		Interval: cfg.Sweep.Interval,
	}, appLogger, appMetrics)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	sweeper.Start(ctx)
}
