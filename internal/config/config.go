// Package config loads the server configuration. Values come from a JSON
// file layered over built-in defaults; command-line flags may override
// individual fields after loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// AppConfig is the root server configuration.
type AppConfig struct {
	// Listen is the HTTP listen address.
	Listen string `json:"listen"`

	// DBPath is the sqlite run-bookkeeping database file.
	DBPath string `json:"db_path"`

	// RunsDir is where downloaded prediction archives and generated
	// artifacts (thumbnails, reports) are kept.
	RunsDir string `json:"runs_dir"`

	// JobServiceURL is the base URL of the remote reconstruction service.
	JobServiceURL string `json:"job_service_url"`

	// PollInterval is how often to poll a running remote job, as a duration
	// string like "2s".
	PollInterval string `json:"poll_interval"`

	// AllowedArchiveDirs restricts where run-registration requests may point
	// the archive parser. Empty means any path is accepted.
	AllowedArchiveDirs []string `json:"allowed_archive_dirs"`

	// AlignY180 applies the 180 degree vertical-axis alignment rotation to
	// every camera, for scenes reconstructed in the flipped convention.
	AlignY180 bool `json:"align_y180"`

	// ThumbnailMaxDim bounds the longer side of generated frame thumbnails.
	ThumbnailMaxDim int `json:"thumbnail_max_dim"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Listen:          ":8080",
		DBPath:          "scene_runs.db",
		RunsDir:         "runs",
		JobServiceURL:   "http://localhost:9090",
		PollInterval:    "2s",
		ThumbnailMaxDim: 256,
	}
}

// Load reads a JSON config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := cfg.PollIntervalDuration(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// PollIntervalDuration parses the poll interval.
func (c AppConfig) PollIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("bad poll_interval %q: %w", c.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("poll_interval must be positive, got %q", c.PollInterval)
	}
	return d, nil
}
