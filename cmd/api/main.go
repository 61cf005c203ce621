package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/examnotify/exam-api/config"
	"github.com/examnotify/exam-api/internal/channel"
	calendarHandler "github.com/examnotify/exam-api/internal/handler/calendar"
	examHandler "github.com/examnotify/exam-api/internal/handler/exam"
	healthHandler "github.com/examnotify/exam-api/internal/handler/health"
	notificationHandler "github.com/examnotify/exam-api/internal/handler/notification"
	userHandler "github.com/examnotify/exam-api/internal/handler/user"
	"github.com/examnotify/exam-api/internal/middleware"
	"github.com/examnotify/exam-api/internal/repository/postgres"
	"github.com/examnotify/exam-api/internal/router"
	calendarService "github.com/examnotify/exam-api/internal/service/calendar"
	examService "github.com/examnotify/exam-api/internal/service/exam"
	notificationService "github.com/examnotify/exam-api/internal/service/notification"
	userService "github.com/examnotify/exam-api/internal/service/user"
	"github.com/examnotify/exam-api/pkg/logger"
	"github.com/examnotify/exam-api/pkg/messaging/redis"
	"github.com/examnotify/exam-api/pkg/metrics"
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
	examRepo := postgres.NewExamRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)

	senders := []channel.Sender{
		channel.NewEmailSender(cfg.SMTP),
		channel.NewSMSSender(cfg.SMS),
		channel.NewInAppSender(broker),
	}

	notificationSvc := notificationService.NewService(notificationRepo, userRepo, senders, appMetrics, appLogger)
	calendarSvc := calendarService.NewService(
		userRepo, examRepo,
		calendarService.NewGoogleProvider(cfg.Calendar),
		cfg.Calendar, appMetrics, appLogger,
	)
	examSvc := examService.NewService(examRepo, userRepo, notificationSvc, calendarSvc, appMetrics, appLogger)
	userSvc := userService.NewService(userRepo, appLogger)

	r := router.NewRouter(registry, router.Config{
		RateLimit:  rate.Limit(cfg.RateLimit.RPS),
		RateBurst:  cfg.RateLimit.Burst,
		Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig: middleware.DefaultCORSConfig(),
	},
		examHandler.NewHandler(examSvc),
		userHandler.NewHandler(userSvc, examSvc, notificationSvc),
		notificationHandler.NewHandler(notificationSvc),
		calendarHandler.NewHandler(calendarSvc, appLogger),
		healthHandler.NewHandler(db),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}
