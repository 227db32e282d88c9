package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"rewarder/bot"
	"rewarder/config"
	"rewarder/database"
	"rewarder/dispatch"
	"rewarder/events"
	"rewarder/infrastructure"
	"rewarder/infrastructure/observability"
	"rewarder/repository"
	"rewarder/service"
	"rewarder/web"
)

const shutdownTimeout = 10 * time.Second

// ConfigureLogging applies the level and formatter from cfg
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting rewards bot...")

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	databaseURL := cfg.GetDatabaseURL()
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	discordBot, err := bot.New(bot.Config{Token: cfg.DiscordToken})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	notifier := discordBot.Notifier()

	admins := service.NewAdminSet(cfg.AdminIDs)
	ledgerService := service.NewLedgerService(uowFactory, metrics)
	redemptionService := service.NewRedemptionService(uowFactory, cfg.RedemptionTimeout, metrics)
	gateService := service.NewGateService(uowFactory, discordBot.MembershipChecker(), cfg.GateCheckTimeout, metrics)
	adminService := service.NewAdminService(uowFactory, admins, metrics)
	conversationService := service.NewConversationService(uowFactory, adminService)

	service.NewRedemptionNotifier(notifier, admins).Subscribe(eventBus)

	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient, err = startEventForwarding(ctx, cfg.NATSServers, eventBus, metrics)
		if err != nil {
			discordBot.Close()
			db.Close()
			return err
		}
	} else {
		log.Info("NATS_SERVERS not set, event forwarding disabled")
	}

	dispatcher := dispatch.New(
		ledgerService,
		redemptionService,
		gateService,
		conversationService,
		adminService,
		notifier,
		dispatch.Config{BaseURL: cfg.BaseURL, RedeemsLogLimit: cfg.RedeemsLogLimit},
		metrics,
	)

	if err := discordBot.Start(dispatcher); err != nil {
		if natsClient != nil {
			natsClient.Close()
		}
		db.Close()
		return fmt.Errorf("failed to start Discord bot: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           web.NewServer(ledgerService, db, cfg.RedemptionTimeout).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Verification server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Info("Bot is running")
	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("verification server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down verification server")
	}
	if err := discordBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Discord bot")
	}
	if err := eventBus.Drain(shutdownCtx); err != nil {
		log.WithError(err).Warn("Event handlers still running at shutdown")
	}
	if natsClient != nil {
		natsClient.Close()
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}
	db.Close()

	log.Info("Shutdown completed")
	return runErr
}

func startEventForwarding(ctx context.Context, servers string, bus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	client := infrastructure.NewNATSClient(servers)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := client.EnsureStream(infrastructure.EventStreamName, mapper.StreamSubjects()); err != nil {
		client.Close()
		return nil, err
	}

	infrastructure.NewEventForwarder(client, mapper, metrics).Subscribe(bus)
	log.WithField("stream", infrastructure.EventStreamName).Info("Forwarding domain events to NATS")
	return client, nil
}
