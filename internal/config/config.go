package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned by Load and Save when no config path is given.
var ErrEmptyPath = errors.New("config path is empty")

// SourceConfig describes the upstream dining feeds.
type SourceConfig struct {
	// BaseURL is the prefix of the dining-all endpoint.
	BaseURL string `yaml:"base_url" json:"base_url" env:"DINING_SOURCE_BASE_URL" validate:"required,url"`
	// OccupancyURL is the occupancy endpoint, queried with ?mdo=<id>.
	OccupancyURL string `yaml:"occupancy_url" json:"occupancy_url" env:"DINING_SOURCE_OCCUPANCY_URL" validate:"omitempty,url"`
	// FoodTruckURL is the weekend food truck events page.
	FoodTruckURL string `yaml:"food_truck_url" json:"food_truck_url" env:"DINING_SOURCE_FOOD_TRUCK_URL" validate:"omitempty,url"`
	// Timeout bounds a single HTTP request.
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"DINING_SOURCE_TIMEOUT" validate:"gt=0"`
	// Parallel fetches the days of a refresh concurrently.
	Parallel bool `yaml:"parallel" json:"parallel" env:"DINING_SOURCE_PARALLEL"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level   string `yaml:"level" json:"level" env:"DINING_LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Console bool   `yaml:"console" json:"console" env:"DINING_LOG_CONSOLE"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API. Auth is
// disabled unless both fields are set.
type BasicAuthConfig struct {
	Username string `yaml:"username,omitempty" json:"username,omitempty" env:"DINING_BASIC_AUTH_USERNAME"`
	Password string `yaml:"password,omitempty" json:"password,omitempty" env:"DINING_BASIC_AUTH_PASSWORD"`
}

// Enabled reports whether both credentials are configured.
func (b BasicAuthConfig) Enabled() bool {
	return b.Username != "" && b.Password != ""
}

// CaptureConfig controls the -snapshot board capture.
type CaptureConfig struct {
	Width   int           `yaml:"width" json:"width" env:"DINING_CAPTURE_WIDTH" validate:"gte=0"`
	Height  int           `yaml:"height" json:"height" env:"DINING_CAPTURE_HEIGHT" validate:"gte=0"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"DINING_CAPTURE_TIMEOUT" validate:"gte=0"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"DINING_LISTEN" validate:"required,hostname_port"`

	// Timezone is the facility's IANA time zone. Every date and status is
	// computed in this zone.
	Timezone string `yaml:"timezone" json:"timezone" env:"DINING_TIMEZONE" validate:"required,timezone"`

	// WindowDays is the length of the rolling window, today included.
	WindowDays int `yaml:"window_days" json:"window_days" env:"DINING_WINDOW_DAYS" validate:"min=1,max=14"`

	// RefreshCron is a cron spec for full refreshes (e.g. "*/15 * * * *").
	RefreshCron string `yaml:"refresh" json:"refresh" env:"DINING_REFRESH" validate:"required"`

	// StatusInterval is how often statuses are recomputed between refreshes.
	StatusInterval time.Duration `yaml:"status_interval" json:"status_interval" env:"DINING_STATUS_INTERVAL" validate:"gt=0"`

	// ChefWatchlist lists visiting chef names to report after each refresh.
	ChefWatchlist []string `yaml:"chef_watchlist" json:"chef_watchlist" env:"DINING_CHEF_WATCHLIST" env-separator:","`

	Source    SourceConfig    `yaml:"source" json:"source"`
	Log       LogConfig       `yaml:"log" json:"log"`
	BasicAuth BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
	Capture   CaptureConfig   `yaml:"capture" json:"capture"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "America/New_York"
	defaultWindowDays     = 7
	defaultRefreshCron    = "*/15 * * * *"
	defaultStatusInterval = 3 * time.Second
	defaultBaseURL        = "https://tigercenter.rit.edu/tigerCenterApi/tc"
	defaultOccupancyURL   = "https://maps.rit.edu/proxySearch/densityMapDetail.php"
	defaultFoodTruckURL   = "https://www.rit.edu/events/weekend-food-trucks"
	defaultSourceTimeout  = 15 * time.Second
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       defaultTimezone,
		WindowDays:     defaultWindowDays,
		RefreshCron:    defaultRefreshCron,
		StatusInterval: defaultStatusInterval,
		ChefWatchlist:  []string{},
		Source: SourceConfig{
			BaseURL:      defaultBaseURL,
			OccupancyURL: defaultOccupancyURL,
			FoodTruckURL: defaultFoodTruckURL,
			Timeout:      defaultSourceTimeout,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.WindowDays <= 0 {
		c.WindowDays = defaultWindowDays
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = defaultStatusInterval
	}
	if c.ChefWatchlist == nil {
		c.ChefWatchlist = []string{}
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultBaseURL
	}
	if c.Source.OccupancyURL == "" {
		c.Source.OccupancyURL = defaultOccupancyURL
	}
	if c.Source.FoodTruckURL == "" {
		c.Source.FoodTruckURL = defaultFoodTruckURL
	}
	if c.Source.Timeout <= 0 {
		c.Source.Timeout = defaultSourceTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field constraints after normalization.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves Timezone. Validate guarantees it loads.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and used.
//   - Otherwise the YAML is read into Config.
//   - DINING_* environment variables override file values.
//   - Defaults are filled in and the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := cleanenv.UpdateEnv(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".diningstatus-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
