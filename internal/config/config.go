package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig describes a single geocoding provider.
type ProviderConfig struct {
	// Disabled turns the provider off even when it would otherwise be
	// usable. A provider without required credentials is skipped anyway.
	Disabled bool `yaml:"disabled" json:"disabled"`

	// APIKey is the provider credential. Only Yandex requires one.
	APIKey string `yaml:"api_key" json:"api_key"`

	// BaseURL overrides the provider endpoint (e.g. a self-hosted
	// Nominatim). Empty means the public default.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// UserAgent is sent with every request. Nominatim rejects requests
	// without one.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// MinInterval is the minimum delay between two requests to this
	// provider. Concurrent callers serialize against it.
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`

	// Timeout bounds a single provider call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RegionConfig is the sanity bounding box for resolved coordinates.
// Cached pairs outside the box are treated as corrupt and re-queried.
type RegionConfig struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
}

// GeocodeConfig groups everything address resolution needs.
type GeocodeConfig struct {
	ArcGIS    ProviderConfig `yaml:"arcgis" json:"arcgis"`
	Yandex    ProviderConfig `yaml:"yandex" json:"yandex"`
	Nominatim ProviderConfig `yaml:"nominatim" json:"nominatim"`

	Region RegionConfig `yaml:"region" json:"region"`

	// LocalityKeywords are settlement names/abbreviations recognized in an
	// address. When none matches, DefaultLocality is appended to the
	// provider query (the cache key is never modified).
	LocalityKeywords []string `yaml:"locality_keywords" json:"locality_keywords"`
	DefaultLocality  string   `yaml:"default_locality" json:"default_locality"`

	// SaveLog enables the write-only geocode attempt log file.
	SaveLog bool `yaml:"save_log" json:"save_log"`
}

// SheetConfig describes the spreadsheet CSV export source.
type SheetConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxRetries is the number of fetch attempts before the run fails.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// SkipRows is the number of leading data rows (template/example rows
	// in the sheet) dropped before normalization.
	SkipRows int `yaml:"skip_rows" json:"skip_rows"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status API. Empty disables
	// the HTTP surface entirely.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// used for periodic sync runs.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Sheet   SheetConfig   `yaml:"sheet" json:"sheet"`
	Geocode GeocodeConfig `yaml:"geocode" json:"geocode"`

	// Output artifacts. All three are human-readable indented JSON.
	EventsFile     string `yaml:"events_file" json:"events_file"`
	CacheFile      string `yaml:"cache_file" json:"cache_file"`
	GeocodeLogFile string `yaml:"geocode_log_file" json:"geocode_log_file"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const defaultSheetURL = "https://docs.google.com/spreadsheets/d/1kHtf37vJhO8nlzQo2WA2awPjp8gJocxy830yigPAxKg/export?format=csv"

// DefaultConfig returns an in-memory default configuration for the
// Kaliningrad deployment.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		RefreshCron: "*/30 * * * *",
		Sheet: SheetConfig{
			URL:        defaultSheetURL,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			SkipRows:   3,
		},
		Geocode: GeocodeConfig{
			ArcGIS:    ProviderConfig{MinInterval: time.Second, Timeout: 10 * time.Second},
			Yandex:    ProviderConfig{MinInterval: time.Second, Timeout: 10 * time.Second},
			Nominatim: ProviderConfig{MinInterval: time.Second, Timeout: 10 * time.Second, UserAgent: "afisha-bot"},
			Region: RegionConfig{
				MinLat: 54, MaxLat: 55,
				MinLon: 19, MaxLon: 21,
			},
			LocalityKeywords: []string{
				"калининград", "гурьевск", "светлогорск", "янтарный",
				"зеленоградск", "пионерский", "балтийск", "поселок",
				"пос.", "г.",
			},
			DefaultLocality: "Калининград",
			SaveLog:         true,
		},
		EventsFile:     "events.json",
		CacheFile:      "geocode_cache.json",
		GeocodeLogFile: "geocode_log.json",
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Sheet.URL == "" {
		c.Sheet.URL = def.Sheet.URL
	}
	if c.Sheet.Timeout <= 0 {
		c.Sheet.Timeout = def.Sheet.Timeout
	}
	if c.Sheet.MaxRetries <= 0 {
		c.Sheet.MaxRetries = def.Sheet.MaxRetries
	}
	if c.Sheet.SkipRows < 0 {
		c.Sheet.SkipRows = def.Sheet.SkipRows
	}

	normalizeProvider(&c.Geocode.ArcGIS, def.Geocode.ArcGIS)
	normalizeProvider(&c.Geocode.Yandex, def.Geocode.Yandex)
	normalizeProvider(&c.Geocode.Nominatim, def.Geocode.Nominatim)

	if c.Geocode.Region == (RegionConfig{}) {
		c.Geocode.Region = def.Geocode.Region
	}
	if c.Geocode.LocalityKeywords == nil {
		c.Geocode.LocalityKeywords = def.Geocode.LocalityKeywords
	}
	if c.Geocode.DefaultLocality == "" {
		c.Geocode.DefaultLocality = def.Geocode.DefaultLocality
	}

	if c.EventsFile == "" {
		c.EventsFile = def.EventsFile
	}
	if c.CacheFile == "" {
		c.CacheFile = def.CacheFile
	}
	if c.GeocodeLogFile == "" {
		c.GeocodeLogFile = def.GeocodeLogFile
	}
}

func normalizeProvider(p *ProviderConfig, def ProviderConfig) {
	if p.MinInterval <= 0 {
		p.MinInterval = def.MinInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.UserAgent == "" {
		p.UserAgent = def.UserAgent
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Sheet.URL == "" {
		return fmt.Errorf("sheet.url is required")
	}
	if c.EventsFile == "" {
		return fmt.Errorf("events_file is required")
	}
	if c.CacheFile == "" {
		return fmt.Errorf("cache_file is required")
	}
	r := c.Geocode.Region
	if r.MinLat >= r.MaxLat || r.MinLon >= r.MaxLon {
		return fmt.Errorf("geocode.region: min bounds must be below max bounds")
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write a
//     default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize and validate.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration as YAML with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
