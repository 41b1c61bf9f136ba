package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/config"
	"cold-outreach-go/internal/database"
	"cold-outreach-go/internal/drafts"
	"cold-outreach-go/internal/events"
	"cold-outreach-go/internal/gateway"
	"cold-outreach-go/internal/handler"
	"cold-outreach-go/internal/mailer"
	"cold-outreach-go/internal/metrics"
	"cold-outreach-go/internal/poller"
	"cold-outreach-go/internal/repository"
	"cold-outreach-go/internal/scheduler"
	"cold-outreach-go/internal/server"
)

// Run wires the application together and blocks until shutdown.
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	emailRepo := repository.NewEmailRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	portfolioRepo := repository.NewPortfolioRepository(db)
	sendLogRepo := repository.NewSendLogRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	emitter := events.NewEmitter()

	ctx := context.Background()

	var generator gateway.ContentGenerator
	if cfg.Gemini.APIKey != "" {
		client, err := gateway.NewGeminiClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		defer client.Close()
		generator = client
	} else {
		logrus.Warn("No Gemini API key configured, AI features disabled")
	}

	gw := gateway.New(generator, gateway.Options{
		Models:     cfg.Gemini.Models,
		Limiter:    gateway.NewWindowLimiter(cfg.Gemini.WindowRequests, cfg.Gemini.Window),
		Usage:      usageRepo,
		Metrics:    m,
		MaxRetries: cfg.Gemini.MaxRetries,
		RetryBase:  cfg.Gemini.RetryBase,
	})

	var transport mailer.Transport = mailer.Disconnected{}
	if cfg.Gmail.HasCredentials() {
		gt, err := mailer.NewGmailTransport(&cfg.Gmail)
		if err != nil {
			return fmt.Errorf("failed to create Gmail transport: %w", err)
		}
		transport = gt
	} else {
		logrus.Warn("No Gmail credentials configured, sending disabled")
	}

	var fetcher mailer.InboundFetcher = transport
	if cfg.Gmail.UseIMAP {
		imapFetcher, err := mailer.NewIMAPFetcher(&cfg.Gmail)
		if err != nil {
			return fmt.Errorf("failed to create IMAP fetcher: %w", err)
		}
		defer imapFetcher.Close()
		fetcher = imapFetcher
	}

	sched := scheduler.New(scheduler.Config{
		DailyLimit:    cfg.Sending.DailyLimit,
		MinDelay:      cfg.Sending.MinDelay,
		MaxDelay:      cfg.Sending.MaxDelay,
		Cooldown:      cfg.Sending.Cooldown,
		CountdownTick: cfg.Sending.CountdownTick,
	}, transport, emailRepo, sendLogRepo, campaignRepo, emitter, m)

	inboundConnected := transport.IsConnected
	if cfg.Gmail.UseIMAP {
		inboundConnected = func() bool { return true }
	}
	inboxPoller := poller.New(fetcher, inboundConnected, gw, emailRepo, replyRepo, leadRepo, campaignRepo, emitter, m, poller.Config{
		Interval: cfg.Poller.Interval(),
		Lookback: cfg.Poller.Lookback,
		PageSize: cfg.Poller.PageSize,
	}, cfg.Gmail.UserEmail)

	draftGenerator := drafts.New(gw, campaignRepo, leadRepo, templateRepo, portfolioRepo, emailRepo, emitter, m, drafts.Config{
		Workers:      cfg.Drafts.Workers,
		Brief:        cfg.Drafts.Brief,
		ExtraContext: cfg.Drafts.ExtraContext,
	})

	if err := inboxPoller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start inbox poller: %w", err)
	}
	defer inboxPoller.Stop()

	router := server.NewRouter(server.Handlers{
		Queue:     handler.NewQueueHandler(sched, emailRepo),
		Campaigns: handler.NewCampaignHandler(campaignRepo, emailRepo, draftGenerator),
		Emails:    handler.NewEmailHandler(emailRepo),
		Replies:   handler.NewReplyHandler(replyRepo),
		Poller:    handler.NewPollerHandler(inboxPoller),
		Leads:     handler.NewLeadHandler(leadRepo),
		Templates: handler.NewTemplateHandler(templateRepo),
		Portfolio: handler.NewPortfolioHandler(portfolioRepo),
		Events:    handler.NewEventsHandler(emitter),
	}, registry)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("Server exited")
	return nil
}
