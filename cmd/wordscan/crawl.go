package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/wordscan/internal/config"
	"github.com/nao1215/wordscan/internal/crawler"
	"github.com/nao1215/wordscan/internal/fetch"
	wslog "github.com/nao1215/wordscan/internal/log"
)

// siteFlags are the flags a config file entry can override unless they
// are given on the command line.
var siteFlags = []string{"user-agent", "limit", "top", "min-length"}

// addCrawlFlags registers the crawl and fetch flags shared by scan and serve.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "l", config.DefaultLimit,
		"Maximum number of HTML pages crawled per seed")
	cmd.Flags().IntP("top", "n", config.DefaultTopN,
		"Number of most frequent words to report")
	cmd.Flags().Int("min-length", config.DefaultMinWordLength,
		"Shortest counted word, in characters")

	cmd.Flags().Int("retries", config.DefaultMaxRetries,
		"Attempts per request, the first one included")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request attempt")
	cmd.Flags().Duration("backoff", config.DefaultBackoffBase,
		"Wait after the first failed attempt; doubles after each further failure")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum page size in bytes (0 for no limit)")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .wordscan in current or home directory)")
	cmd.Flags().String("log-file", "",
		"Also write logs to this file (rotated at 10MB)")
}

// readCrawlFlags copies the shared flags into cfg, loads the config file and
// returns the site flags that were set explicitly.
func readCrawlFlags(cmd *cobra.Command, cfg *config.Config) (map[string]bool, error) {
	var err error

	if cfg.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return nil, err
	}
	if cfg.TopN, err = cmd.Flags().GetInt("top"); err != nil {
		return nil, err
	}
	if cfg.MinWordLength, err = cmd.Flags().GetInt("min-length"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BackoffBase, err = cmd.Flags().GetDuration("backoff"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = cmd.Flags().GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	pinned := make(map[string]bool, len(siteFlags))
	for _, name := range siteFlags {
		if cmd.Flags().Changed(name) {
			pinned[name] = true
		}
	}
	return pinned, nil
}

// loadSiteConfigs loads the config file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty config is used when no file is found.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)

	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return cf, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// nopCloser is returned by setupLogger when no log file is open.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// setupLogger creates the secure logger of a command. Logs go to w and, when
// cfg.LogFile is set, to a rotated log file. The returned Closer closes the
// log file.
func setupLogger(w io.Writer, cfg *config.Config, jsonFormat bool) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}

	if cfg.LogFile != "" {
		file, err := wslog.OpenLogFile(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(w, file)
		closer = file
	}

	if jsonFormat {
		return wslog.NewSecureJSONLogger(w, cfg.Verbose), closer, nil
	}
	return wslog.NewSecureLogger(w, cfg.Verbose), closer, nil
}

// newFetcher builds the retrying fetcher for one site.
func newFetcher(cfg *config.Config, site config.SiteConfig, logger *slog.Logger) *fetch.RetryingFetcher {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithUserAgent(cfg.UserAgent),
	}
	if site.Cookie != "" {
		opts = append(opts, fetch.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(site.Headers))
	}

	return fetch.NewRetryingFetcher(
		fetch.NewHTTPFetcher(opts...),
		fetch.WithMaxAttempts(cfg.MaxRetries),
		fetch.WithBackoffBase(cfg.BackoffBase),
		fetch.WithRetryLogger(logger),
	)
}

// newController builds the crawl controller for seed with the settings of
// its host applied. An invalid seed still gets a controller; its Crawl
// returns crawler.ErrInvalidInput.
func newController(
	cfg *config.Config,
	pinned map[string]bool,
	seed string,
	logger *slog.Logger,
	hook func(crawler.PageEvent),
) *crawler.Controller {
	var host string
	if u, err := crawler.ValidateSeed(seed); err == nil {
		host = u.Host
	}

	siteCfg := cfg.ForSite(host, pinned)
	var site config.SiteConfig
	if cfg.SiteConfigs != nil {
		site = cfg.SiteConfigs.GetSiteConfig(host)
	}

	logger = logger.With("seed", seed)
	opts := []crawler.Option{
		crawler.WithLimit(siteCfg.Limit),
		crawler.WithTopN(siteCfg.TopN),
		crawler.WithMinWordLength(siteCfg.MinWordLength),
		crawler.WithLogger(logger),
	}
	if hook != nil {
		opts = append(opts, crawler.WithPageHook(hook))
	}
	return crawler.NewController(newFetcher(siteCfg, site, logger), opts...)
}

// validateSeeds checks every seed before any crawl starts.
func validateSeeds(seeds []string) error {
	var errs []error
	for _, seed := range seeds {
		if _, err := crawler.ValidateSeed(seed); err != nil {
			errs = append(errs, fmt.Errorf("invalid seed %q: %w", seed, err))
		}
	}
	return errors.Join(errs...)
}

// newProgressBar creates the progress bar of one crawl on w.
func newProgressBar(w io.Writer, limit int, seed string) *progressbar.ProgressBar {
	return progressbar.NewOptions(limit,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(seed),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
