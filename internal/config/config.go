// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"subgrab/internal/consts"
	"subgrab/internal/errs"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	App      App
	HTTP     HTTP
	Search   Search
	Reddit   Reddit
	Imgur    Imgur
	Download Download
	Proxy    Proxy
	Metrics  Metrics
	Manifest Manifest
}

// App holds application-wide configuration.
type App struct {
	LogLevel  string `env:"SUBGRAB_APP_LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"SUBGRAB_APP_LOG_FORMAT" envDefault:"json"`
}

// HTTP holds outbound HTTP client configuration.
type HTTP struct {
	Timeout   time.Duration `env:"SUBGRAB_HTTP_TIMEOUT"    envDefault:"60s"`
	UserAgent string        `env:"SUBGRAB_HTTP_USER_AGENT" envDefault:"subgrab/1.0"`
}

// Search holds search index configuration.
type Search struct {
	BaseURL  string  `env:"SUBGRAB_SEARCH_BASE_URL"  envDefault:"https://api.pushshift.io"`
	Limit    int     `env:"SUBGRAB_SEARCH_LIMIT"     envDefault:"5000"`
	PageSize int     `env:"SUBGRAB_SEARCH_PAGE_SIZE" envDefault:"100"`
	RPS      float64 `env:"SUBGRAB_SEARCH_RPS"       envDefault:"1"`
	Burst    int     `env:"SUBGRAB_SEARCH_BURST"     envDefault:"1"`
}

// Reddit holds the authenticated score lookup configuration.
type Reddit struct {
	CredentialsFile string `env:"SUBGRAB_REDDIT_CREDENTIALS_FILE" envDefault:"reddit.yaml"`
	TokenURL        string `env:"SUBGRAB_REDDIT_TOKEN_URL"        envDefault:"https://www.reddit.com/api/v1/access_token"`
	APIURL          string `env:"SUBGRAB_REDDIT_API_URL"          envDefault:"https://oauth.reddit.com"`
}

// Imgur holds image host configuration.
type Imgur struct {
	CredentialsFile string `env:"SUBGRAB_IMGUR_CREDENTIALS_FILE" envDefault:"imgur.yaml"`
	APIURL          string `env:"SUBGRAB_IMGUR_API_URL"          envDefault:"https://api.imgur.com"`
	// BaseURL serves album layout pages.
	BaseURL string `env:"SUBGRAB_IMGUR_BASE_URL" envDefault:"http://imgur.com"`
	// DirectURL serves raw content.
	DirectURL string `env:"SUBGRAB_IMGUR_DIRECT_URL" envDefault:"https://i.imgur.com"`
}

// Download holds downloader configuration.
type Download struct {
	// Dir is the base directory the output folder is created in.
	Dir         string `env:"SUBGRAB_DOWNLOAD_DIR"          envDefault:"."`
	OnExisting  string `env:"SUBGRAB_DOWNLOAD_ON_EXISTING"  envDefault:"fail"`
	Workers     int    `env:"SUBGRAB_DOWNLOAD_WORKERS"      envDefault:"1"`
	MaxAttempts int    `env:"SUBGRAB_DOWNLOAD_MAX_ATTEMPTS" envDefault:"10"`
}

// Validate checks the download configuration.
func (d *Download) Validate() error {
	switch d.OnExisting {
	case consts.PolicyFail, consts.PolicyMerge, consts.PolicyOverwrite:
	default:
		return fmt.Errorf("%w: %q", errs.ErrInvalidPolicy, d.OnExisting)
	}

	if d.Workers < 1 {
		d.Workers = 1
	}

	if d.MaxAttempts < 1 {
		d.MaxAttempts = consts.DefaultTransientAttempts
	}

	return nil
}

// SetAbsPaths converts the base directory to an absolute path.
func (d *Download) SetAbsPaths() error {
	var err error
	if d.Dir, err = filepath.Abs(d.Dir); err != nil {
		return fmt.Errorf("download dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for download requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs
	List string `env:"SUBGRAB_PROXY_LIST" envDefault:""`
	// HealthCheckInterval is how often to check proxy health
	HealthCheckInterval time.Duration `env:"SUBGRAB_PROXY_HEALTH_CHECK_INTERVAL" envDefault:"5m"`
	// FailureBackoff is the initial backoff duration for failed proxies
	FailureBackoff time.Duration `env:"SUBGRAB_PROXY_FAILURE_BACKOFF" envDefault:"1m"`
	// MaxFailures is the maximum number of failures before a proxy is temporarily removed
	MaxFailures int `env:"SUBGRAB_PROXY_MAX_FAILURES" envDefault:"3"`

	// Proxies is the parsed list of proxy URLs
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	p.Proxies = SplitList(p.List)
}

// Metrics holds Prometheus exposition configuration.
type Metrics struct {
	// Addr serves /metrics while the run lasts when set, e.g. ":9090".
	Addr string `env:"SUBGRAB_METRICS_ADDR" envDefault:""`
	// File is written in textfile collector format at the end of the run.
	File string `env:"SUBGRAB_METRICS_FILE" envDefault:""`
}

// Manifest holds run manifest configuration.
type Manifest struct {
	// File receives the run manifest; a ".xz" suffix enables compression.
	File string `env:"SUBGRAB_MANIFEST_FILE" envDefault:""`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Download.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate download: %w", err)
	}

	err = cfg.Download.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set download absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}

// SplitList splits a comma-separated list, trimming blanks and dropping empty items.
func SplitList(list string) []string {
	var items []string

	for item := range strings.SplitSeq(list, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}

	return items
}
