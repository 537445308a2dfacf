package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on typical Tor network characteristics.
const (
	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	// Port 9050 is the default for the Tor daemon's SOCKS port.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultPortTimeout bounds a single port check. Connections through Tor
	// need several relay hops, so this is far longer than a clearnet probe.
	DefaultPortTimeout = 10 * time.Second

	// DefaultPortWorkers probes the whole catalog at once.
	DefaultPortWorkers = 19

	// DefaultBrowserTimeout bounds page navigation including screenshot capture.
	DefaultBrowserTimeout = 120 * time.Second

	// DefaultScreenshotQuality is the JPEG quality of page screenshots.
	DefaultScreenshotQuality = 80

	// DefaultUserAgent is sent by the headless browser.
	// It mimics Tor Browser so crawls blend in with regular visitors.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:128.0) Gecko/20100101 Firefox/128.0"

	// DefaultArtifactDir is the base directory for locally stored screenshots.
	DefaultArtifactDir = "."

	// DefaultBatchSize is the number of concurrent crawls in batch mode.
	DefaultBatchSize = 4

	// DefaultListenAddr is the address the HTTP server binds to.
	DefaultListenAddr = "127.0.0.1:8080"

	// AppName is the application name used for XDG directory paths.
	AppName = "darklight"
)

// Config holds all configuration options for darklight.
// It is populated from defaults, then the YAML config file, then
// environment variables, then CLI flags, and passed through the
// application via dependency injection.
//
// The fields are grouped by the config file section they belong to.
// Read and Set address them by (section, key); see keys.go.
type Config struct {
	// TorEnabled routes page fetches and port probes through Tor.
	TorEnabled bool

	// TorProxyAddress is the SOCKS5 proxy in "host:port" format.
	// When empty and TorEnabled is true, an embedded Tor daemon is started.
	TorProxyAddress string

	// TorStartupTimeout bounds embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// PortTimeout bounds each individual port check.
	PortTimeout time.Duration

	// PortWorkers caps concurrent port checks per scan.
	PortWorkers int

	// BrowserTimeout bounds navigation of a single URL.
	BrowserTimeout time.Duration

	// BrowserPath overrides the Chrome executable; empty means auto-detect.
	BrowserPath string

	// UserAgent is sent by the headless browser.
	UserAgent string

	// ScreenshotQuality is the JPEG quality (1-100).
	ScreenshotQuality int

	// BucketName selects the S3 artifact backend when non-empty.
	BucketName string

	// RegionName is the S3 region.
	RegionName string

	// AccessKeyID and SecretAccessKey are static S3 credentials.
	// When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// EndpointURL overrides the S3 endpoint for S3-compatible stores.
	EndpointURL string

	// ArtifactDir is the base directory of the local artifact backend.
	ArtifactDir string

	// DatabaseURL is the PostgreSQL connection string for domain records.
	DatabaseURL string

	// IndexDir is the directory holding the SQLite document index.
	IndexDir string

	// RedisAddr enables the mirror stage when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EnabledStages lists pipeline stages to run.
	// An empty list enables every registered stage.
	EnabledStages []string

	// ListenAddr is the address of the HTTP server.
	ListenAddr string

	// BatchSize is the number of concurrent crawls in batch mode.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, Tor).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		TorEnabled:        true,
		TorProxyAddress:   DefaultTorProxyAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		PortTimeout:       DefaultPortTimeout,
		PortWorkers:       DefaultPortWorkers,
		BrowserTimeout:    DefaultBrowserTimeout,
		UserAgent:         DefaultUserAgent,
		ScreenshotQuality: DefaultScreenshotQuality,
		ArtifactDir:       DefaultArtifactDir,
		IndexDir:          XDGDataDir(),
		BatchSize:         DefaultBatchSize,
		ListenAddr:        DefaultListenAddr,
	}
}

// StageEnabled reports whether the named pipeline stage is enabled.
func (c *Config) StageEnabled(name string) bool {
	if len(c.EnabledStages) == 0 {
		return true
	}
	for _, s := range c.EnabledStages {
		if s == name {
			return true
		}
	}
	return false
}

// XDGDataDir returns the XDG data directory for darklight.
// On Linux: ~/.local/share/darklight
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for darklight.
// On Linux: ~/.config/darklight
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.PortTimeout <= 0 {
		return ErrInvalidPortTimeout
	}

	if c.PortWorkers <= 0 {
		return ErrInvalidPortWorkers
	}

	if c.BrowserTimeout <= 0 {
		return ErrInvalidBrowserTimeout
	}

	if c.ScreenshotQuality < 1 || c.ScreenshotQuality > 100 {
		return ErrInvalidScreenshotQuality
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// The S3 client cannot resolve an endpoint without a region.
	if c.BucketName != "" && c.RegionName == "" && c.EndpointURL == "" {
		return ErrMissingRegion
	}

	// Either both static credentials are set or neither.
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return ErrIncompleteCredentials
	}

	return nil
}
