package cfg

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	DBPath string `long:"db-path" env:"DB_PATH" default:"./newsdesk.db" description:"Path to the SQLite database file"`

	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"600" description:"Feed polling interval in seconds"`
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for feed processing"`
	FeedTimeout       int `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30" description:"Per-request timeout for feed and article fetches in seconds"`
	StaleThreshold    int `long:"stale-threshold" env:"STALE_THRESHOLD" default:"60" description:"Minutes before a stuck processing item is swept back into the queue"`
	EntriesPerPoll    int `long:"entries-per-poll" env:"ENTRIES_PER_POLL" default:"5" description:"Maximum new entries taken from a feed per poll"`

	BotToken   string `long:"bot-token" env:"BOT_TOKEN" description:"Telegram bot token (required)" required:"true"`
	Moderators string `long:"moderators" env:"MODERATORS" description:"Comma-separated Telegram user IDs of moderators (required)" required:"true"`
	ChannelID  int64  `long:"channel-id" env:"CHANNEL_ID" description:"Telegram channel ID for the channel publish target"`

	RewriteURL   string `long:"rewrite-url" env:"REWRITE_URL" default:"https://api.deepseek.com" description:"Base URL of the OpenAI-compatible rewrite API"`
	RewriteKey   string `long:"rewrite-key" env:"REWRITE_KEY" description:"API key for the rewrite service"`
	RewriteModel string `long:"rewrite-model" env:"REWRITE_MODEL" default:"deepseek-chat" description:"Model name for the rewrite service"`
	MaxWords     int    `long:"max-words" env:"MAX_WORDS" default:"180" description:"Word limit applied to rewritten and fallback text"`

	SiteURL      string `long:"site-url" env:"SITE_URL" description:"Base URL of the CMS admin panel (site publishing disabled when empty)"`
	SiteLogin    string `long:"site-login" env:"SITE_LOGIN" description:"CMS admin login"`
	SitePassword string `long:"site-password" env:"SITE_PASSWORD" description:"CMS admin password"`

	Port string `long:"port" env:"PORT" default:"8080" description:"HTTP status server port"`

	UserAgent   string `long:"user-agent" env:"USER_AGENT" default:"newsdesk/1.0" description:"User agent string for HTTP requests"`
	ImagesDir   string `long:"images-dir" env:"IMAGES_DIR" default:"./images" description:"Directory for downloaded and stock images"`
	SourcesFile string `long:"sources-file" env:"SOURCES_FILE" description:"Optional YAML file with feed URLs to register at startup"`
	Debug       bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	moderators, err := parseModerators(raw.Moderators)
	if err != nil {
		return nil, err
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SchedulerInterval: raw.SchedulerInterval,
		WorkerCount:       raw.WorkerCount,
		FeedTimeout:       raw.FeedTimeout,
		StaleThreshold:    raw.StaleThreshold,
		EntriesPerPoll:    raw.EntriesPerPoll,
		BotToken:          raw.BotToken,
		ModeratorIDs:      moderators,
		ChannelID:         raw.ChannelID,
		RewriteURL:        raw.RewriteURL,
		RewriteKey:        raw.RewriteKey,
		RewriteModel:      raw.RewriteModel,
		MaxWords:          raw.MaxWords,
		SiteURL:           raw.SiteURL,
		SiteLogin:         raw.SiteLogin,
		SitePassword:      raw.SitePassword,
		Port:              raw.Port,
		UserAgent:         raw.UserAgent,
		ImagesDir:         raw.ImagesDir,
		SourcesFile:       raw.SourcesFile,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func parseModerators(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid moderator ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one moderator ID is required")
	}
	return ids, nil
}
