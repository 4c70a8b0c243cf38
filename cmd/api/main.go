package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medicare-wellness/clinic-scheduler/internal/api/router"
	"github.com/medicare-wellness/clinic-scheduler/internal/assistant"
	appconfig "github.com/medicare-wellness/clinic-scheduler/internal/config"
	"github.com/medicare-wellness/clinic-scheduler/internal/export"
	"github.com/medicare-wellness/clinic-scheduler/internal/forms"
	"github.com/medicare-wellness/clinic-scheduler/internal/http/handlers"
	"github.com/medicare-wellness/clinic-scheduler/internal/notify"
	"github.com/medicare-wellness/clinic-scheduler/internal/observability/metrics"
	"github.com/medicare-wellness/clinic-scheduler/internal/patients"
	"github.com/medicare-wellness/clinic-scheduler/internal/reminders"
	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/internal/webchat"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	location, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "tz", cfg.ClinicTimezone, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedMetrics := metrics.NewSchedulerMetrics(registry)

	// Outbound senders. Stubs keep local development working without
	// provider credentials.
	var emailSender notify.EmailSender
	if cfg.SendGridAPIKey != "" {
		emailSender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, using stub email sender")
		emailSender = notify.NewStubEmailSender(logger)
	}
	mailer := notify.NewMailer(emailSender)

	var smsSender reminders.SMSSender
	if telnyx, err := notify.NewTelnyxSender(notify.TelnyxConfig{
		APIKey:     cfg.SMSAPIKey,
		FromNumber: cfg.SMSFromNumber,
		BaseURL:    cfg.SMSBaseURL,
	}, logger); err == nil {
		smsSender = telnyx
	} else {
		logger.Warn("SMS sender not configured", "error", err)
	}

	// Stores
	schedStore := scheduling.NewStore(pool)
	patientStore := patients.NewStore(pool)
	reminderStore := reminders.NewStore(pool)
	formStore := forms.NewStore(pool)

	slotCache := scheduling.NewRedisSlotCache(redisClient, cfg.AvailabilityTTL, logger)

	calculator := scheduling.NewCalculator(schedStore, slotCache, scheduling.CalculatorConfig{
		IntervalMinutes: cfg.SlotIntervalMinutes,
		BufferMinutes:   cfg.BufferMinutes,
		WindowDays:      cfg.BookingWindowDays,
		Location:        location,
	}, logger)

	scheduler := reminders.NewScheduler(reminderStore, reminders.Offsets{
		First:  cfg.ReminderFirstOffset,
		Second: cfg.ReminderSecondOffset,
		Third:  cfg.ReminderThirdOffset,
	}, logger)

	booker := scheduling.NewBooker(schedStore, patientStore, scheduler, slotCache, schedMetrics, scheduling.BookerConfig{
		BufferMinutes:     cfg.BufferMinutes,
		NewPatientMinutes: cfg.NewPatientMinutes,
		ReturningMinutes:  cfg.ReturningMinutes,
	}, logger)

	renderer := reminders.NewRenderer(reminders.TemplateConfig{
		ClinicName:  cfg.ClinicName,
		ClinicPhone: cfg.ClinicPhone,
		FormBaseURL: cfg.FormBaseURL,
		Location:    location,
	})

	dispatcher := reminders.NewDispatcher(reminderStore, renderer, mailer, smsSender, schedMetrics, reminders.DispatcherConfig{
		Interval:  cfg.DispatchInterval,
		BatchSize: cfg.DispatchBatchSize,
	}, logger)

	formService := forms.NewService(formStore, schedStore, patientStore, mailer, forms.ServiceConfig{
		ClinicName:  cfg.ClinicName,
		FormBaseURL: cfg.FormBaseURL,
		Location:    location,
	}, logger)

	exporter := export.NewExporter(pool, location)

	// Chat assistant is optional; without a Gemini key the chat routes are
	// simply not mounted.
	var chatHandler *webchat.Handler
	if cfg.GeminiAPIKey != "" {
		llm, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = llm.Close() }()

		chatService := assistant.NewService(llm, schedStore, assistant.ServiceConfig{
			ClinicName:  cfg.ClinicName,
			ClinicPhone: cfg.ClinicPhone,
		}, logger)
		transcript := assistant.NewRedisTranscript(redisClient, 24*time.Hour)
		chatHandler = webchat.NewHandler(chatService, transcript, logger)
	} else {
		logger.Info("GEMINI_API_KEY not set, chat assistant disabled")
	}

	var corsOrigins []string
	if cfg.CORSAllowedOrigins != "" {
		corsOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	}

	r := router.New(&router.Config{
		Logger:          logger,
		Health:          handlers.NewHealthHandler(pool),
		Availability:    handlers.NewAvailabilityHandler(calculator, schedStore, location, logger),
		Appointments:    handlers.NewAppointmentsHandler(booker, schedStore, formService, reminderStore, logger),
		Patients:        handlers.NewPatientsHandler(patientStore, logger),
		Forms:           handlers.NewFormsHandler(formService, logger),
		AdminReminders:  handlers.NewAdminRemindersHandler(reminderStore, dispatcher, logger),
		Export:          handlers.NewExportHandler(exporter, calculator, location, logger),
		AdminAuthSecret: cfg.AdminJWTSecret,
		Webchat:         chatHandler,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Registry: registry,
		}),
		CORSAllowedOrigins:   corsOrigins,
		BookingRatePerSecond: 5,
		BookingBurst:         10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
