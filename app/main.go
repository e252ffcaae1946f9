package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsdesk/app/api"
	"newsdesk/app/bot"
	"newsdesk/app/cfg"
	"newsdesk/app/config"
	"newsdesk/app/database"
	"newsdesk/app/feed"
	"newsdesk/app/moderation"
	"newsdesk/app/publisher"
	"newsdesk/app/retry"
	"newsdesk/app/rewrite"
	"newsdesk/app/tasks"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting newsdesk", "version", c.Version)

	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	dedupRepo := database.NewDedupRepository(db)
	queueRepo := database.NewQueueRepository(db)
	lockRepo := database.NewLockRepository(db)

	if err := seedSources(sourceRepo, c.SourcesFile); err != nil {
		slog.Error("Failed to seed feed sources", "file", c.SourcesFile, "error", err)
		os.Exit(1)
	}

	botAPI, err := tgbotapi.NewBotAPI(c.BotToken)
	if err != nil {
		slog.Error("Failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	slog.Info("Telegram bot authorized", "username", botAPI.Self.UserName, "moderators", len(c.ModeratorIDs))

	policy := retry.DefaultPolicy()

	sender := bot.NewSender(botAPI, c.ModeratorIDs, policy)

	rewriteClient := rewrite.NewClient(&http.Client{}, c.RewriteURL, c.RewriteKey,
		c.RewriteModel, 90*time.Second, policy)

	channelPub := publisher.NewChannelPublisher(botAPI, c.ChannelID, policy)

	jar, err := cookiejar.New(nil)
	if err != nil {
		slog.Error("Failed to create cookie jar", "error", err)
		os.Exit(1)
	}
	cmsClient := &http.Client{Jar: jar, Timeout: 60 * time.Second}
	sitePub := publisher.NewCMSPublisher(cmsClient, c.SiteURL, c.SiteLogin, c.SitePassword, policy)
	if c.SiteURL == "" {
		slog.Warn("Site URL not configured, site publishing will fail until it is set")
	}

	service := moderation.NewService(queueRepo, dedupRepo, lockRepo,
		sender, rewriteClient, channelPub, sitePub, c.MaxWords)

	fetcher := feed.NewFetcher(&http.Client{Timeout: time.Duration(c.FeedTimeout) * time.Second},
		c.UserAgent, c.ImagesDir)
	parser := feed.NewParser()
	extractor := feed.NewContentExtractor()

	dispatcher := tasks.NewDispatcher(queueRepo, lockRepo, service,
		time.Duration(c.StaleThreshold)*time.Minute)

	scheduler := tasks.NewScheduler(sourceRepo, dedupRepo, queueRepo,
		fetcher, parser, extractor, dispatcher)
	slog.Info("Starting background scheduler", "workers", c.WorkerCount, "interval_seconds", c.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()

	botHandler := bot.NewHandler(botAPI, service, sourceRepo, queueRepo,
		lockRepo, scheduler, c.ModeratorIDs)
	go botHandler.Run(botCtx)

	apiHandler := api.NewHandler(db, sourceRepo, queueRepo, service, scheduler, c.Version)
	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(apiHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP status server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Newsdesk started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	botCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer; queue state is durable across restarts.
	slog.Info("Shutdown complete")
}

// seedSources registers feeds from the optional YAML seed file. Existing
// registrations are kept; the file only adds.
func seedSources(sourceRepo database.SourceRepository, path string) error {
	urls, err := config.LoadSources(path)
	if err != nil {
		return err
	}

	for _, url := range urls {
		if err := sourceRepo.AddSource(url); err != nil {
			return fmt.Errorf("failed to register source %s: %w", url, err)
		}
		slog.Info("Registered feed source", "url", url)
	}

	return nil
}
