// Package config provides the run configuration for the storefront suite.
// It loads settings from environment variables, applies CLI flag overrides,
// validates required fields, and provides defaults matching the public
// saucedemo storefront.
//
// A Config is built once at process start and passed by pointer; nothing
// mutates it afterwards.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/storefront-e2e/internal/driver"
	"github.com/kuitang/storefront-e2e/internal/logutil"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

const (
	DefaultBrowser           = "chrome"
	DefaultBaseURL           = "https://www.saucedemo.com/"
	DefaultDeviceName        = "iPhone X"
	DefaultLogLevel          = "debug"
	DefaultActionTimeout     = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultAxeScriptURL      = "https://cdnjs.cloudflare.com/ajax/libs/axe-core/4.10.2/axe.min.js"
	DefaultArtifactDir       = "./test-results"
	DefaultLaunchRate        = 2.0
	defaultS3Region          = "auto"
)

// Config holds all run configuration.
type Config struct {
	// Target and browser
	Browser    string
	BaseURL    string
	Headless   bool
	Mobile     bool
	DeviceName string
	SlowMo     time.Duration

	// Credentials for the login workflow
	Username string
	Password string

	// Logging
	LogLevel string
	LogFile  string

	// Interaction bounds
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration

	// Accessibility scan
	AxeScriptURL string

	// Artifacts
	ScreenshotOnFailure bool
	ArtifactDir         string
	ArtifactBucket      string
	AWSEndpointS3       string // AWS_ENDPOINT_URL_S3
	AWSRegion           string // AWS_REGION
	AWSAccessKeyID      string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey  string // AWS_SECRET_ACCESS_KEY

	// Runner
	Parallelism int
	LaunchRate  float64 // session launches per second
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Overrides carries CLI flag values. Zero values leave the environment value alone.
type Overrides struct {
	Browser     string
	BaseURL     string
	DeviceName  string
	Headless    *bool
	Mobile      *bool
	LogLevel    string
	LogFile     string
	Parallelism int
}

// RegisterFlags registers the configuration flags on fs and returns the
// Overrides they populate once fs is parsed.
func RegisterFlags(fs *flag.FlagSet) *Overrides {
	o := &Overrides{}
	fs.StringVar(&o.Browser, "browser", "", "Browser to run: chrome, firefox or edge (overrides BROWSER)")
	fs.StringVar(&o.BaseURL, "base-url", "", "Storefront URL (overrides BASE_URL)")
	fs.StringVar(&o.DeviceName, "device", "", "Device preset for mobile emulation (overrides DEVICE_NAME)")
	fs.Var(&optionalBool{target: &o.Headless}, "headless", "Run without a visible window (overrides HEADLESS)")
	fs.Var(&optionalBool{target: &o.Mobile}, "mobile", "Emulate DEVICE_NAME, chrome only (overrides MOBILE)")
	fs.StringVar(&o.LogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	fs.StringVar(&o.LogFile, "log-file", "", "Write JSON logs to this file (overrides LOG_FILE)")
	fs.IntVar(&o.Parallelism, "parallel", 0, "Scenarios to run concurrently (overrides PARALLELISM)")
	return o
}

// Default returns a Config holding every default and no credentials. Tests
// use it to build configurations without touching the environment.
func Default() *Config {
	return &Config{
		Browser:             DefaultBrowser,
		BaseURL:             DefaultBaseURL,
		Headless:            true,
		DeviceName:          DefaultDeviceName,
		LogLevel:            DefaultLogLevel,
		ActionTimeout:       DefaultActionTimeout,
		NavigationTimeout:   DefaultNavigationTimeout,
		AxeScriptURL:        DefaultAxeScriptURL,
		ScreenshotOnFailure: true,
		ArtifactDir:         DefaultArtifactDir,
		AWSRegion:           defaultS3Region,
		Parallelism:         1,
		LaunchRate:          DefaultLaunchRate,
	}
}

// LoadConfig loads configuration from environment variables, applies the
// given overrides, and validates the result.
func LoadConfig(o Overrides) (*Config, error) {
	cfg := &Config{}

	cfg.Browser = strings.ToLower(strings.TrimSpace(getEnvOrDefault("BROWSER", DefaultBrowser)))
	cfg.BaseURL = strings.TrimSpace(getEnvOrDefault("BASE_URL", DefaultBaseURL))
	cfg.Headless = parseBoolOrDefault("HEADLESS", true)
	cfg.Mobile = parseBoolOrDefault("MOBILE", false)
	cfg.DeviceName = getEnvOrDefault("DEVICE_NAME", DefaultDeviceName)
	cfg.SlowMo = parseDurationOrDefault("SLOW_MO", 0)

	cfg.Username = strings.TrimSpace(os.Getenv("USER_USERNAME"))
	cfg.Password = os.Getenv("USER_PASSWORD")

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", DefaultLogLevel)
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))

	cfg.ActionTimeout = parseDurationOrDefault("ACTION_TIMEOUT", DefaultActionTimeout)
	cfg.NavigationTimeout = parseDurationOrDefault("NAVIGATION_TIMEOUT", DefaultNavigationTimeout)

	cfg.AxeScriptURL = getEnvOrDefault("AXE_SCRIPT_URL", DefaultAxeScriptURL)

	cfg.ScreenshotOnFailure = parseBoolOrDefault("SCREENSHOT_ON_FAILURE", true)
	cfg.ArtifactDir = getEnvOrDefault("ARTIFACT_DIR", DefaultArtifactDir)
	cfg.ArtifactBucket = strings.TrimSpace(os.Getenv("ARTIFACT_BUCKET"))
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultS3Region)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))

	cfg.Parallelism = parseIntOrDefault("PARALLELISM", 1)
	cfg.LaunchRate = parseFloat64OrDefault("LAUNCH_RATE", DefaultLaunchRate)

	cfg.apply(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(o Overrides) {
	if o.Browser != "" {
		c.Browser = strings.ToLower(strings.TrimSpace(o.Browser))
	}
	if o.BaseURL != "" {
		c.BaseURL = strings.TrimSpace(o.BaseURL)
	}
	if o.DeviceName != "" {
		c.DeviceName = o.DeviceName
	}
	if o.Headless != nil {
		c.Headless = *o.Headless
	}
	if o.Mobile != nil {
		c.Mobile = *o.Mobile
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.Parallelism != 0 {
		c.Parallelism = o.Parallelism
	}
}

// Validate checks that all required configuration is present and valid.
// Every problem is reported at once.
func (c *Config) Validate() error {
	var errs []string

	if _, err := driver.ParseKind(c.Browser); err != nil {
		errs = append(errs, fmt.Sprintf("BROWSER must be one of %s (got %q)", driver.KindNames(), c.Browser))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("BASE_URL must be an absolute http(s) URL (got %q)", c.BaseURL))
	}

	if c.Mobile && strings.TrimSpace(c.DeviceName) == "" {
		errs = append(errs, "DEVICE_NAME is required when MOBILE is set")
	}

	// Credentials: a missing login is a startup error, never a runtime one.
	if c.Username == "" {
		errs = append(errs, "USER_USERNAME is required")
	}
	if c.Password == "" {
		errs = append(errs, "USER_PASSWORD is required")
	}

	if _, err := obs.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be debug, info, warn or error (got %q)", c.LogLevel))
	}

	if c.ActionTimeout <= 0 {
		errs = append(errs, "ACTION_TIMEOUT must be positive")
	}
	if c.NavigationTimeout <= 0 {
		errs = append(errs, "NAVIGATION_TIMEOUT must be positive")
	}
	if c.SlowMo < 0 {
		errs = append(errs, "SLOW_MO must not be negative")
	}

	if c.Parallelism < 1 {
		errs = append(errs, "PARALLELISM must be at least 1")
	}
	if c.LaunchRate <= 0 {
		errs = append(errs, "LAUNCH_RATE must be positive")
	}

	// S3 upload: require credentials only when a bucket is named. An empty
	// endpoint means AWS S3 itself.
	if c.ArtifactBucket != "" {
		if c.AWSEndpointS3 != "" {
			if u, err := url.Parse(c.AWSEndpointS3); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Sprintf("AWS_ENDPOINT_URL_S3 must be an http(s) URL (got %q)", c.AWSEndpointS3))
			}
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when ARTIFACT_BUCKET is set")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when ARTIFACT_BUCKET is set")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UsesS3 reports whether artifacts should be uploaded to a bucket.
func (c *Config) UsesS3() bool {
	return c.ArtifactBucket != ""
}

// Summary returns a human-readable, redacted summary of the configuration.
func (c *Config) Summary() string {
	var b strings.Builder
	line := func(key, value string) {
		fmt.Fprintf(&b, "  %-22s %s\n", key+":", logutil.RedactValue(key, value))
	}
	b.WriteString("storefront-e2e configuration\n")
	line("BROWSER", c.Browser)
	line("BASE_URL", c.BaseURL)
	line("HEADLESS", strconv.FormatBool(c.Headless))
	line("MOBILE", strconv.FormatBool(c.Mobile))
	if c.Mobile {
		line("DEVICE_NAME", c.DeviceName)
	}
	line("USER_USERNAME", c.Username)
	line("USER_PASSWORD", c.Password)
	line("LOG_LEVEL", c.LogLevel)
	line("LOG_FILE", c.LogFile)
	line("ACTION_TIMEOUT", c.ActionTimeout.String())
	line("NAVIGATION_TIMEOUT", c.NavigationTimeout.String())
	if c.UsesS3() {
		line("ARTIFACT_BUCKET", c.ArtifactBucket)
		line("AWS_ENDPOINT_URL_S3", c.AWSEndpointS3)
		line("AWS_SECRET_ACCESS_KEY", c.AWSSecretAccessKey)
	} else {
		line("ARTIFACT_DIR", c.ArtifactDir)
	}
	return b.String()
}

// PrintStartupSummary prints Summary to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprint(os.Stderr, c.Summary())
	fmt.Fprintln(os.Stderr, "")
}

// optionalBool is a boolean flag that records whether it was set.
type optionalBool struct {
	target **bool
}

func (b *optionalBool) String() string {
	if b == nil || b.target == nil || *b.target == nil {
		return ""
	}
	return strconv.FormatBool(**b.target)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b.target = &v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
// Use this in main() when you want the run to fail fast on bad config.
func MustLoadConfig(o Overrides) *Config {
	cfg, err := LoadConfig(o)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
