package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shopscan/shopscan/pkg/models"
)

// Config holds application configuration values.
type Config struct {
	// Logging
	LogLevel string `json:"log_level,omitempty"`
	JSONLog  bool   `json:"json_log,omitempty"`

	// Rate limiting
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	BurstSize         int     `json:"burst_size,omitempty"`

	// Requests
	HTTPTimeout   time.Duration     `json:"-"`
	TimeoutSecs   int               `json:"timeout,omitempty"`
	MaxRetries    int               `json:"max_retries,omitempty"`
	BackoffFactor float64           `json:"backoff_factor,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	Headers       map[string]string `json:"custom_headers,omitempty"`
	Proxy         string            `json:"proxy,omitempty"`

	// Circuit breaker
	FailureThreshold int           `json:"failure_threshold,omitempty"`
	RecoveryTimeout  time.Duration `json:"-"`
	RecoverySecs     int           `json:"recovery_timeout,omitempty"`

	// Crawling
	MaxPages             int `json:"max_pages,omitempty"`
	MaxImagesPerProduct  int `json:"max_images_per_product,omitempty"`
	DescriptionMaxLength int `json:"description_max_length,omitempty"`

	// Page cache
	CacheSize int           `json:"cache_size,omitempty"`
	CacheTTL  time.Duration `json:"-"`

	// Storage
	DatabaseURL string `json:"database_url,omitempty"`

	// Image downloads
	ImageConcurrency int `json:"image_concurrency,omitempty"`

	// Dashboard
	ListenAddr string `json:"listen_addr,omitempty"`

	// Per-site selector overrides, keyed by bare domain. Merged over the
	// built-in profiles; a file entry replaces a built-in one wholesale.
	ProductSelectors map[string]models.SelectorProfile `json:"product_selectors,omitempty"`
}

// Load builds a Config by combining defaults, an optional JSON config
// file, SHOPSCAN_* environment variables, and CLI flags, in that order of
// precedence. Caller should pass the root *cobra.Command so flags can be
// read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:             DefaultLogLevel,
		JSONLog:              DefaultJSONLog,
		RequestsPerSecond:    DefaultRequestsPerSecond,
		BurstSize:            DefaultBurstSize,
		HTTPTimeout:          DefaultHTTPTimeout,
		MaxRetries:           DefaultMaxRetries,
		BackoffFactor:        DefaultBackoffFactor,
		FailureThreshold:     DefaultFailureThreshold,
		RecoveryTimeout:      DefaultRecoveryTimeout,
		MaxPages:             DefaultMaxPages,
		MaxImagesPerProduct:  DefaultMaxImagesPerProduct,
		DescriptionMaxLength: DefaultDescriptionMaxLength,
		CacheSize:            DefaultCacheSize,
		CacheTTL:             DefaultCacheTTL,
		ImageConcurrency:     DefaultImageConcurrency,
		ListenAddr:           DefaultListenAddr,
		ProductSelectors:     BuiltinProfiles(),
	}

	path := ""
	if f := lookupFlag(cmd, "config"); f != nil {
		path = f.Value.String()
	}
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyFlags(cmd)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFile overlays values from a JSON config file. A missing file is
// an error only when the path was given explicitly.
func (c *Config) applyFile(path string) error {
	explicit := path != ""
	if path == "" {
		path = "shopscan.json"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		if os.IsNotExist(err) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	c.merge(&file)
	return nil
}

func (c *Config) merge(o *Config) {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.JSONLog {
		c.JSONLog = true
	}
	if o.RequestsPerSecond > 0 {
		c.RequestsPerSecond = o.RequestsPerSecond
	}
	if o.BurstSize > 0 {
		c.BurstSize = o.BurstSize
	}
	if o.TimeoutSecs > 0 {
		c.HTTPTimeout = time.Duration(o.TimeoutSecs) * time.Second
	}
	if o.MaxRetries > 0 {
		c.MaxRetries = o.MaxRetries
	}
	if o.BackoffFactor > 0 {
		c.BackoffFactor = o.BackoffFactor
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if len(o.Headers) > 0 {
		c.Headers = o.Headers
	}
	if o.Proxy != "" {
		c.Proxy = o.Proxy
	}
	if o.FailureThreshold > 0 {
		c.FailureThreshold = o.FailureThreshold
	}
	if o.RecoverySecs > 0 {
		c.RecoveryTimeout = time.Duration(o.RecoverySecs) * time.Second
	}
	if o.MaxPages > 0 {
		c.MaxPages = o.MaxPages
	}
	if o.MaxImagesPerProduct > 0 {
		c.MaxImagesPerProduct = o.MaxImagesPerProduct
	}
	if o.DescriptionMaxLength > 0 {
		c.DescriptionMaxLength = o.DescriptionMaxLength
	}
	if o.CacheSize > 0 {
		c.CacheSize = o.CacheSize
	}
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}
	if o.ImageConcurrency > 0 {
		c.ImageConcurrency = o.ImageConcurrency
	}
	if o.ListenAddr != "" {
		c.ListenAddr = o.ListenAddr
	}
	for domain, profile := range o.ProductSelectors {
		c.ProductSelectors[domain] = profile
	}
}

func (c *Config) applyEnv() {
	if v, ok := envFloat("SHOPSCAN_REQUESTS_PER_SECOND"); ok {
		c.RequestsPerSecond = v
	}
	if v, ok := envInt("SHOPSCAN_BURST_SIZE"); ok {
		c.BurstSize = v
	}
	if v, ok := envInt("SHOPSCAN_TIMEOUT"); ok {
		c.HTTPTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("SHOPSCAN_MAX_RETRIES"); ok {
		c.MaxRetries = v
	}
	if v, ok := envFloat("SHOPSCAN_BACKOFF_FACTOR"); ok {
		c.BackoffFactor = v
	}
	if v, ok := envInt("SHOPSCAN_FAILURE_THRESHOLD"); ok {
		c.FailureThreshold = v
	}
	if v, ok := envInt("SHOPSCAN_RECOVERY_TIMEOUT"); ok {
		c.RecoveryTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("SHOPSCAN_MAX_PAGES"); ok {
		c.MaxPages = v
	}
	if v := os.Getenv("SHOPSCAN_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SHOPSCAN_PROXY_URL"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SHOPSCAN_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("SHOPSCAN_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SHOPSCAN_CUSTOM_HEADERS"); v != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(v), &headers); err == nil {
			c.Headers = headers
		}
	}
}

func (c *Config) applyFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	if f := lookupFlag(cmd, "user-agent"); f != nil && f.Changed {
		c.UserAgent = f.Value.String()
	}
	if f := lookupFlag(cmd, "proxy"); f != nil && f.Changed {
		c.Proxy = f.Value.String()
	}
	if f := lookupFlag(cmd, "timeout"); f != nil && f.Changed {
		if d, err := time.ParseDuration(f.Value.String()); err == nil {
			c.HTTPTimeout = d
		}
	}
	if f := lookupFlag(cmd, "rate"); f != nil && f.Changed {
		if v, err := strconv.ParseFloat(f.Value.String(), 64); err == nil {
			c.RequestsPerSecond = v
		}
	}
	if f := lookupFlag(cmd, "database-url"); f != nil && f.Changed {
		c.DatabaseURL = f.Value.String()
	}
	if f := lookupFlag(cmd, "json-log"); f != nil && f.Value.String() == "true" {
		c.JSONLog = true
	}
	if f := lookupFlag(cmd, "verbose"); f != nil && f.Value.String() == "true" {
		c.LogLevel = "debug"
	}
	if f := lookupFlag(cmd, "quiet"); f != nil && f.Value.String() == "true" {
		c.LogLevel = "error"
	}
}

// lookupFlag finds a flag on the command or its persistent set, so Load
// works both mid-execution and when handed a bare root command.
func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if cmd == nil {
		return nil
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.PersistentFlags().Lookup(name)
}

func envFloat(key string) (float64, bool) {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func envInt(key string) (int, bool) {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v, true
		}
	}
	return 0, false
}
