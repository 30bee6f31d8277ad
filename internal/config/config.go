package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wordscan"

	// DefaultLimit is the maximum number of HTML pages crawled per seed.
	DefaultLimit = 30

	// DefaultTopN is the number of words reported per seed.
	DefaultTopN = 5

	// DefaultMinWordLength is the shortest word (in characters) that is counted.
	// Shorter tokens are mostly articles, pronouns and markup noise.
	DefaultMinWordLength = 5

	// DefaultMaxRetries is the number of attempts per request, the first included.
	DefaultMaxRetries = 3

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 3 * time.Second

	// DefaultBackoffBase is the wait after the first failed attempt. It doubles
	// after each further failure.
	DefaultBackoffBase = 100 * time.Millisecond

	// DefaultUserAgent identifies wordscan in HTTP requests.
	DefaultUserAgent = "wordscan/1.0 (+https://github.com/nao1215/wordscan)"

	// DefaultMaxBodySize limits the buffered page size.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultBatchSize is the number of seeds crawled at once. Each crawl is
	// sequential regardless of this value.
	DefaultBatchSize = 1

	// DefaultListenAddr is the address of the HTTP API.
	DefaultListenAddr = "127.0.0.1:8080"
)

// Config holds all configuration options for wordscan.
// It is populated from CLI flags and the optional config file and passed
// through the application explicitly.
type Config struct {
	// Seeds are the URLs to crawl, one crawl each.
	Seeds []string

	// Limit is the maximum number of HTML pages crawled per seed.
	Limit int

	// TopN is the number of words reported per seed.
	TopN int

	// MinWordLength is the shortest counted word.
	MinWordLength int

	// MaxRetries is the number of attempts per request.
	MaxRetries int

	// Timeout bounds each request attempt.
	Timeout time.Duration

	// BackoffBase is the first retry delay.
	BackoffBase time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize caps the buffered body of a page. 0 disables the cap.
	MaxBodySize int64

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFile, when set, receives a copy of the logs in a rotated file.
	LogFile string

	// Progress shows a progress bar on stderr while crawling.
	Progress bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/wordscan on Linux).
	DBDir string

	// SaveToDB indicates whether finished crawls are stored in the history database.
	SaveToDB bool

	// ListenAddr is the address the HTTP API listens on.
	ListenAddr string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Limit:         DefaultLimit,
		TopN:          DefaultTopN,
		MinWordLength: DefaultMinWordLength,
		MaxRetries:    DefaultMaxRetries,
		Timeout:       DefaultTimeout,
		BackoffBase:   DefaultBackoffBase,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		BatchSize:     DefaultBatchSize,
		Progress:      true,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
		ListenAddr:    DefaultListenAddr,
	}
}

// XDGDataDir returns the XDG data directory for wordscan.
// On Linux: ~/.local/share/wordscan
// On macOS: ~/Library/Application Support/wordscan
// On Windows: %LOCALAPPDATA%\wordscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wordscan.
// On Linux: ~/.config/wordscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks a configuration for the scan command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoTarget
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	return c.ValidateCrawl()
}

// ValidateCrawl checks the crawl and fetch settings only.
// The serve command uses it because seeds arrive with each request.
func (c *Config) ValidateCrawl() error {
	if c.Limit < 1 {
		return ErrInvalidLimit
	}
	if c.TopN < 1 {
		return ErrInvalidTopN
	}
	if c.MinWordLength < 1 {
		return ErrInvalidMinWordLength
	}
	if c.MaxRetries < 1 {
		return ErrInvalidRetries
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BackoffBase < 0 {
		return ErrInvalidBackoff
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// ForSite returns a copy of c with the overrides of the config file entry
// for host applied. Fields set explicitly on the command line are listed in
// pinned and keep their value.
func (c *Config) ForSite(host string, pinned map[string]bool) *Config {
	out := *c
	if c.SiteConfigs == nil {
		return &out
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.UserAgent != "" && !pinned["user-agent"] {
		out.UserAgent = site.UserAgent
	}
	if site.Limit > 0 && !pinned["limit"] {
		out.Limit = site.Limit
	}
	if site.Top > 0 && !pinned["top"] {
		out.TopN = site.Top
	}
	if site.MinLength > 0 && !pinned["min-length"] {
		out.MinWordLength = site.MinLength
	}
	return &out
}
