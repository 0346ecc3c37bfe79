package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/campuswell/counseling-api/internal/config"
	appointmentHandler "github.com/campuswell/counseling-api/internal/handler/appointment"
	crisisHandler "github.com/campuswell/counseling-api/internal/handler/crisis"
	"github.com/campuswell/counseling-api/internal/middleware"
	"github.com/campuswell/counseling-api/internal/repository/postgres"
	"github.com/campuswell/counseling-api/internal/router"
	appointmentService "github.com/campuswell/counseling-api/internal/service/appointment"
	crisisService "github.com/campuswell/counseling-api/internal/service/crisis"
	scheduleService "github.com/campuswell/counseling-api/internal/service/schedule"
	"github.com/campuswell/counseling-api/pkg/metrics"
	"github.com/campuswell/counseling-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := validator.RegisterCustomValidators(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	counselorRepo := postgres.NewCounselorRepository(db)
	crisisRepo := postgres.NewCrisisAlertRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("counseling", "api")

	scheduleSvc := scheduleService.NewService(counselorRepo)
	crisisSvc := crisisService.NewService(crisisRepo, outboxRepo, m)
	appointmentSvc := appointmentService.NewService(appointmentRepo, scheduleSvc, outboxRepo, crisisSvc, m)

	r := router.NewRouter(router.Config{
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORS:           middleware.DefaultCORSConfig(),
		JWTSecret:      cfg.JWT.Secret,
	})
	r.Setup(
		appointmentHandler.NewHandler(appointmentSvc),
		crisisHandler.NewHandler(crisisSvc),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
