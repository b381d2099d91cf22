// Package keys holds various keys for software operations, such as terminal input keys and internal Viper keys.
package keys

// Program inputs.
const (
	URLs        string = "urls"
	URLFile     string = "url-file"
	DownloadDir string = "download-dir"
	DBPath      string = "db-path"
	ConfigFile  string = "config-file"
	DebugLevel  string = "debug-level"
	LogFile     string = "log-file"
)

// Queue and scheduling.
const (
	MaxConcurrent     string = "max-concurrent"
	DomainConcurrency string = "domain-concurrency"
	DomainInterval    string = "domain-interval"
	JobPriority       string = "priority"
)

// Retry behavior.
const (
	RetryMaxAttempts string = "retry-max-attempts"
	RetryBaseDelay   string = "retry-base-delay"
	RetryDelayCap    string = "retry-delay-cap"
)

// Network.
const (
	BandwidthLimit string = "bandwidth-limit"
	ConnectTimeout string = "connect-timeout"
	ReadTimeout    string = "read-timeout"
	CookieSource   string = "cookies-from-browser"
)

// Content filtering.
const (
	MinFileSize     string = "min-file-size"
	MaxFileSize     string = "max-file-size"
	FilterDateAfter string = "filter-date-after"
	FilterDateTo    string = "filter-date-before"
	ExcludeExts     string = "exclude-exts"
)

// External engines.
const (
	GalleryDLPath string = "gallery-dl-path"
	YtDLPPath     string = "yt-dlp-path"
)

// Observers.
const (
	WebhookURLs string = "webhook-urls"
)

// Control server and retention.
const (
	Serve          string = "serve"
	ListenAddr     string = "listen-addr"
	PurgeOlderThan string = "purge-older-than"
)
