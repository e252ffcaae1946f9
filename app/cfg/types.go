package cfg

type Cfg struct {
	// Storage
	DBPath string

	// Scheduler
	SchedulerInterval int // seconds
	WorkerCount       int
	FeedTimeout       int // seconds
	StaleThreshold    int // minutes
	EntriesPerPoll    int

	// Telegram
	BotToken     string
	ModeratorIDs []int64
	ChannelID    int64

	// Rewrite service
	RewriteURL   string
	RewriteKey   string
	RewriteModel string
	MaxWords     int

	// CMS publisher
	SiteURL      string
	SiteLogin    string
	SitePassword string

	// HTTP status API
	Port string

	// Misc
	UserAgent   string
	ImagesDir   string
	SourcesFile string
	Debug       bool
	Version     string
}
