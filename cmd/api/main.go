package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SomuG25/devcall/internal/audit"
	"github.com/SomuG25/devcall/internal/auth"
	"github.com/SomuG25/devcall/internal/booking"
	"github.com/SomuG25/devcall/internal/config"
	"github.com/SomuG25/devcall/internal/httpapi"
	"github.com/SomuG25/devcall/internal/mail"
	"github.com/SomuG25/devcall/internal/payment"
	"github.com/SomuG25/devcall/internal/profile"
	"github.com/SomuG25/devcall/internal/realtime"
	"github.com/SomuG25/devcall/internal/reporting"
	"github.com/SomuG25/devcall/pkg/logger"
	"github.com/SomuG25/devcall/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PoolConfig{
		MaxConns:    cfg.DB.MaxConns,
		MaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	loc, err := cfg.BookingLocation()
	if err != nil {
		log.Error("timezone init failed", "err", err)
		os.Exit(1)
	}

	profiles := profile.NewService(profile.NewPostgresRepo(db), authManager)

	bookingRepo := booking.NewPostgresRepo(db)
	bookings := booking.NewService(
		bookingRepo,
		booking.NewValidator(loc, cfg.Booking.MeetBaseURL),
		profiles,
		payment.NewSimulatedVerifier(cfg.Booking.PaymentCheckDelay, log),
		realtime.NewPublisher(rdb, log),
		mail.NewSMTPMailer(cfg.SMTP, log),
		log,
	)

	handlers := httpapi.Handlers{
		Profiles: profiles,
		Bookings: bookings,
		Reports:  reporting.NewService(bookingRepo),
		Audit:    audit.NewService(audit.NewPostgresRepo(db)),
		Stream:   realtime.NewSubscriber(rdb, log),
		Log:      log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, cfg, handlers, auth.RequireAccessToken(authManager), db, rdb)

	// No WriteTimeout: the booking change feed holds its response open.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
