package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	appconfig "github.com/medicare-wellness/clinic-scheduler/internal/config"
	"github.com/medicare-wellness/clinic-scheduler/internal/notify"
	"github.com/medicare-wellness/clinic-scheduler/internal/reminders"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("reminder worker requires DATABASE_URL")
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		logger.Error("invalid clinic timezone", "tz", cfg.ClinicTimezone, "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

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

	var smsSender reminders.SMSSender
	if telnyx, err := notify.NewTelnyxSender(notify.TelnyxConfig{
		APIKey:     cfg.SMSAPIKey,
		FromNumber: cfg.SMSFromNumber,
		BaseURL:    cfg.SMSBaseURL,
		Timeout:    10 * time.Second,
	}, logger); err == nil {
		smsSender = telnyx
	} else {
		logger.Warn("SMS sender not configured, final reminders go email-only", "error", err)
	}

	store := reminders.NewStore(pool)
	renderer := reminders.NewRenderer(reminders.TemplateConfig{
		ClinicName:  cfg.ClinicName,
		ClinicPhone: cfg.ClinicPhone,
		FormBaseURL: cfg.FormBaseURL,
		Location:    location,
	})

	dispatcher := reminders.NewDispatcher(store, renderer, notify.NewMailer(emailSender), smsSender, nil, reminders.DispatcherConfig{
		Interval:  cfg.DispatchInterval,
		BatchSize: cfg.DispatchBatchSize,
	}, logger)

	go dispatcher.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("reminder worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
