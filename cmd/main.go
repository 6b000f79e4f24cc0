package main

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/feedback"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/telegram"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logging.Info().Str("env", cfg.AppEnv).Str("store", cfg.StoreDriver).Msg("starting complaintdesk backend")

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			logging.Error().Err(err).Msg("sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	setupCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	store, err := storage.Open(setupCtx, cfg)
	if err != nil {
		cancel()
		logging.Fatal().Err(err).Msg("failed to open record store")
	}
	rdb, err := storage.OpenRedis(setupCtx, cfg)
	cancel()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect Redis")
	}
	if rdb != nil {
		defer rdb.Close()
		logging.Info().Str("addr", cfg.RedisAddr).Msg("redis connected, using shared locks and event fan-out")
	}

	// 2. Event hub and optional staff notifier
	hub := eventhub.NewHub(rdb)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	if cfg.TelegramBotToken != "" {
		if err := startNotifier(cfg, hub); err != nil {
			logging.Error().Err(err).Msg("telegram notifier disabled")
		}
	}

	// 3. Services
	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.StaffTokenTTL, cfg.OwnerTokenTTL, cfg.InviteTokenTTL)
	locker := storage.NewLocker(rdb)

	complaints := complaint.NewService(store, locker, tokens, hub)
	complaints.StaffAuthRequired = cfg.StaffAuthRequired
	fb := feedback.NewService(store, locker, tokens, hub)
	fb.StaffAuthRequired = cfg.StaffAuthRequired

	h := handler.NewHandler(complaints, fb, analysis.NewService(store), auth.NewService(store, tokens), tokens, hub, store)
	h.StaffAuthRequired = cfg.StaffAuthRequired
	h.Limiter = handler.NewRateLimiter(cfg.SubmitRatePerMinute, cfg.SubmitBurst)
	h.Limiter.StartCleanup(ctx, 5*time.Minute)

	// 4. HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler.NewRouter(h, cfg.AllowedOrigins),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logging.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http server shutdown failed")
	}
	<-hubDone
	if err := store.Close(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("failed to close record store")
	}
	logging.Info().Msg("stopped")
}

func startNotifier(cfg *config.Config, hub *eventhub.Hub) error {
	loc, err := localization.NewLocalizer()
	if err != nil {
		return err
	}
	bot, err := telegram.NewBot(cfg.TelegramBotToken)
	if err != nil {
		return err
	}

	notifier := telegram.NewNotifier(bot, cfg.TelegramChatID, cfg.NotifyLanguage, loc)
	notifier.Run()
	hub.Register(notifier)
	logging.Info().Int64("chat_id", cfg.TelegramChatID).Str("lang", cfg.NotifyLanguage).Msg("telegram notifier registered")
	return nil
}
