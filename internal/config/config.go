// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/easyutilityhub/config.toml",
	"configs/config.toml",
}

const placeholderKey = "YOUR_API_KEY_HERE"

// DefaultMaxRetries is the retry cap used when retry.max_retries is omitted.
const DefaultMaxRetries = 3

// Retry policies. They differ only in how transport failures are treated.
const (
	RetryOverloadAndTransport = "overload_and_transport"
	RetryOverloadOnly         = "overload_only"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config      string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host        string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port        int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	RemoveBGKey string `kong:"name='removebg-api-key',help='remove.bg API key (overrides config).',env='REMOVEBG_API_KEY'"`
	ClipdropKey string `kong:"name='clipdrop-api-key',help='ClipDrop API key (overrides config).',env='CLIPDROP_API_KEY'"`
	GeminiKey   string `kong:"name='gemini-api-key',help='Gemini API key (overrides config).',env='GEMINI_API_KEY'"`
	LogLevel    string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	CORS     CORSConfig     `toml:"cors"`
	Upstream UpstreamConfig `toml:"upstream"`
	Retry    RetryConfig    `toml:"retry"`
	RemoveBG RemoveBGConfig `toml:"removebg"`
	Clipdrop ClipdropConfig `toml:"clipdrop"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (8080)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CORSConfig lists what the preflight gate advertises.
type CORSConfig struct {
	AllowOrigins []string `toml:"allow_origins"`
	AllowMethods []string `toml:"allow_methods"`
	AllowHeaders []string `toml:"allow_headers"`
}

// UpstreamConfig holds settings shared by every vendor connection.
type UpstreamConfig struct {
	TimeoutSeconds   int   `toml:"timeout_seconds"`
	IdleConnections  int   `toml:"idle_connections"`
	MaxResponseBytes int64 `toml:"max_response_bytes"`
}

// RetryConfig controls the bounded retry around each vendor call.
type RetryConfig struct {
	MaxRetries       *int   `toml:"max_retries"` // nil means DefaultMaxRetries
	BaseDelayMS      int    `toml:"base_delay_ms"`
	MaxDelayMS       int    `toml:"max_delay_ms"`
	Policy           string `toml:"policy"`
	OverloadStatuses []int  `toml:"overload_statuses"`
}

// RemoveBGConfig configures the remove.bg pass-through.
type RemoveBGConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// ClipdropConfig configures the ClipDrop repackaging proxy.
type ClipdropConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// GeminiConfig configures the generative-language vendor.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/easyutilityhub/config.toml then configs/config.toml. Without any file
// the service runs on defaults plus whatever the environment supplies.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.RemoveBGKey != "" {
		c.RemoveBG.APIKey = cli.RemoveBGKey
	}
	if cli.ClipdropKey != "" {
		c.Clipdrop.APIKey = cli.ClipdropKey
	}
	if cli.GeminiKey != "" {
		c.Gemini.APIKey = cli.GeminiKey
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	for name, key := range map[string]string{
		"removebg.api_key": c.RemoveBG.APIKey,
		"clipdrop.api_key": c.Clipdrop.APIKey,
		"gemini.api_key":   c.Gemini.APIKey,
	} {
		if key == placeholderKey {
			return fmt.Errorf("%s contains placeholder value; set a real key or leave it empty", name)
		}
	}

	// Vendor URLs are optional (defaults apply) but must be HTTPS when set.
	for name, raw := range map[string]string{
		"removebg.base_url": c.RemoveBG.BaseURL,
		"clipdrop.base_url": c.Clipdrop.BaseURL,
		"gemini.base_url":   c.Gemini.BaseURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
		if u.Scheme != "https" {
			return fmt.Errorf("%s must use HTTPS; got %q", name, raw)
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Upstream.MaxResponseBytes < 0 {
		return fmt.Errorf("upstream.max_response_bytes must be non-negative; got %d", c.Upstream.MaxResponseBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("gemini.temperature must be 0–2; got %v", c.Gemini.Temperature)
	}

	// Retry fields.
	if n := c.Retry.MaxRetries; n != nil && (*n < 0 || *n > 10) {
		return fmt.Errorf("retry.max_retries must be 0–10; got %d", *n)
	}
	if c.Retry.BaseDelayMS < 0 {
		return fmt.Errorf("retry.base_delay_ms must be non-negative; got %d", c.Retry.BaseDelayMS)
	}
	if c.Retry.MaxDelayMS < 0 {
		return fmt.Errorf("retry.max_delay_ms must be non-negative; got %d", c.Retry.MaxDelayMS)
	}
	switch strings.ToLower(c.Retry.Policy) {
	case RetryOverloadAndTransport, RetryOverloadOnly, "":
		// valid
	default:
		return fmt.Errorf("retry.policy must be one of: %s, %s; got %q", RetryOverloadAndTransport, RetryOverloadOnly, c.Retry.Policy)
	}
	for _, code := range c.Retry.OverloadStatuses {
		if code < 400 || code > 599 {
			return fmt.Errorf("retry.overload_statuses must contain 4xx/5xx codes; got %d", code)
		}
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/api", "/healthz", "/status"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish an
// explicit 0 from an omitted key. retry.max_retries is a pointer so that an
// explicit 0 disables retries.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 12 * 1024 * 1024 // 12 MB
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
	if len(c.CORS.AllowMethods) == 0 {
		c.CORS.AllowMethods = []string{"POST", "OPTIONS"}
	}
	if len(c.CORS.AllowHeaders) == 0 {
		c.CORS.AllowHeaders = []string{"Content-Type"}
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 60
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 32
	}
	if c.Upstream.MaxResponseBytes == 0 {
		c.Upstream.MaxResponseBytes = 25 * 1024 * 1024 // 25 MB
	}
	if c.Retry.BaseDelayMS == 0 {
		c.Retry.BaseDelayMS = 1000
	}
	if c.Retry.Policy == "" {
		c.Retry.Policy = RetryOverloadAndTransport
	}
	c.Retry.Policy = strings.ToLower(c.Retry.Policy)
	if len(c.Retry.OverloadStatuses) == 0 {
		c.Retry.OverloadStatuses = []int{503}
	}
	if c.RemoveBG.BaseURL == "" {
		c.RemoveBG.BaseURL = "https://api.remove.bg"
	}
	if c.Clipdrop.BaseURL == "" {
		c.Clipdrop.BaseURL = "https://clipdrop-api.co"
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Retries returns the configured retry cap.
func (c *RetryConfig) Retries() int {
	if c.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// BaseDelay returns the first backoff interval.
func (c *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff ceiling; zero means uncapped.
func (c *RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

// RetryTransport reports whether connection failures are retried like overload.
func (c *RetryConfig) RetryTransport() bool {
	return c.Policy != RetryOverloadOnly
}

// IsOverload reports whether status is a configured "service busy" signal.
func (c *RetryConfig) IsOverload(status int) bool {
	for _, s := range c.OverloadStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
