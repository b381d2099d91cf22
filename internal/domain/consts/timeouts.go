package consts

import "time"

// Network timeouts
const (
	ConnectTimeout  = 10 * time.Second
	ReadTimeout     = 30 * time.Second
	ScraperTimeout  = 60 * time.Second
	DatabaseTimeout = 5 * time.Second
	WebhookTimeout  = 10 * time.Second
)

// Retry configuration
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultRetryDelayCap  = 30 * time.Second
	DefaultRetryJitter    = 500 * time.Millisecond
)

// Rate limiting
const (
	DefaultDomainConcurrency = 2
	DefaultDomainInterval    = 1 * time.Second
)

// Queue
const (
	DefaultMaxConcurrent = 3
	ShutdownGracePeriod  = 10 * time.Second
)

// Control server
const (
	DefaultListenAddr     = ":8847"
	ServerShutdownTimeout = 5 * time.Second
)

// Progress reporting
const (
	ProgressMinInterval = 100 * time.Millisecond
)
