// Package config provides configuration management for sourcify-sync.
//
// Configuration is read from a TOML file (default: config.toml in the
// working directory) and may be overridden per-field from CLI flags.
//
// TOML format:
//
//	manifest_url = "https://export.sourcify.dev/manifest.json"
//	download_dir = "./downloads"
//	aria2c_path = "aria2c"
//	concurrent_downloads = 5
//	integrity_check = true
//	integrity_retry_count = 3
//	concurrent_validations = 8
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.toml"

// SessionFileName is the aria2c session file kept inside the download
// directory. It is owned by aria2c; the orchestrator never parses it.
const SessionFileName = ".session"

// Config holds the resolved runtime configuration.
type Config struct {
	// ManifestURL is the location of the Sourcify export manifest JSON.
	ManifestURL string `toml:"manifest_url"`

	// DownloadDir is the local mirror directory (flattened layout).
	DownloadDir string `toml:"download_dir"`

	// Aria2cPath is the aria2c binary to invoke for transfers.
	Aria2cPath string `toml:"aria2c_path"`

	// ConcurrentDownloads is passed to aria2c as -j.
	ConcurrentDownloads int `toml:"concurrent_downloads"`

	// IntegrityCheck enables structural verification of parquet files
	// after each transfer pass.
	IntegrityCheck bool `toml:"integrity_check"`

	// IntegrityRetryCount bounds re-download attempts for files that
	// fail verification.
	IntegrityRetryCount int `toml:"integrity_retry_count"`

	// ConcurrentValidations bounds the verification worker pool.
	// Zero means runtime.NumCPU().
	ConcurrentValidations int `toml:"concurrent_validations"`

	// BaseURL is derived from ManifestURL by stripping its final path
	// segment. Not a TOML key.
	BaseURL string `toml:"-"`
}

// Overrides carries CLI flag values that take precedence over the file.
// Zero values mean "not set".
type Overrides struct {
	DownloadDir           string
	ManifestURL           string
	ConcurrentDownloads   int
	IntegrityRetryCount   int
	ConcurrentValidations int
}

func defaults() Config {
	return Config{
		ManifestURL:           "https://export.sourcify.dev/manifest.json",
		DownloadDir:           "./downloads",
		Aria2cPath:            "aria2c",
		ConcurrentDownloads:   5,
		IntegrityCheck:        true,
		IntegrityRetryCount:   3,
		ConcurrentValidations: runtime.NumCPU(),
	}
}

// Load reads the config file (if present), applies overrides, and derives
// the manifest base URL. A missing file at the default path is not an
// error; an explicitly requested file that cannot be read is.
func Load(path string, ov Overrides) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if ov.DownloadDir != "" {
		cfg.DownloadDir = ov.DownloadDir
	}
	if ov.ManifestURL != "" {
		cfg.ManifestURL = ov.ManifestURL
	}
	if ov.ConcurrentDownloads > 0 {
		cfg.ConcurrentDownloads = ov.ConcurrentDownloads
	}
	if ov.IntegrityRetryCount > 0 {
		cfg.IntegrityRetryCount = ov.IntegrityRetryCount
	}
	if ov.ConcurrentValidations > 0 {
		cfg.ConcurrentValidations = ov.ConcurrentValidations
	}

	if cfg.ConcurrentDownloads < 1 {
		return nil, fmt.Errorf("concurrent_downloads must be >= 1, got %d", cfg.ConcurrentDownloads)
	}
	if cfg.IntegrityRetryCount < 1 {
		return nil, fmt.Errorf("integrity_retry_count must be >= 1, got %d", cfg.IntegrityRetryCount)
	}
	if cfg.ConcurrentValidations < 1 {
		cfg.ConcurrentValidations = runtime.NumCPU()
	}

	base, err := deriveBaseURL(cfg.ManifestURL)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = base

	abs, err := filepath.Abs(expandHome(cfg.DownloadDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download_dir: %w", err)
	}
	cfg.DownloadDir = abs

	return &cfg, nil
}

// SessionPath returns the aria2c session file path for this run.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DownloadDir, SessionFileName)
}

// deriveBaseURL strips the final path segment of the manifest URL so that
// manifest-relative file paths can be appended directly.
func deriveBaseURL(manifestURL string) (string, error) {
	u, err := url.Parse(manifestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid manifest_url %q", manifestURL)
	}

	dir := u.Path
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	}
	return fmt.Sprintf("%s://%s%s/", u.Scheme, u.Host, dir), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
