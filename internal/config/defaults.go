package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel = "info"
	DefaultJSONLog  = false

	DefaultRequestsPerSecond = 1.0
	DefaultBurstSize         = 5

	DefaultHTTPTimeout   = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 2.0

	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second

	DefaultMaxPages             = 10
	DefaultMaxImagesPerProduct  = 10
	DefaultDescriptionMaxLength = 1000

	DefaultCacheSize = 256
	DefaultCacheTTL  = 5 * time.Minute

	DefaultImageConcurrency = 4
	DefaultListenAddr       = ":8080"
)
