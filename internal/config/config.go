package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/locator-cli/internal/grid"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig               `yaml:"store" mapstructure:"store"`
	Yext      YextConfig                `yaml:"yext" mapstructure:"yext"`
	Cache     CacheConfig               `yaml:"cache" mapstructure:"cache"`
	Fetcher   FetcherConfig             `yaml:"fetcher" mapstructure:"fetcher"`
	Scan      ScanConfig                `yaml:"scan" mapstructure:"scan"`
	Retailers map[string]RetailerConfig `yaml:"retailers" mapstructure:"retailers"`
	Log       LogConfig                 `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the scan-run database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// YextConfig holds provider API credentials and endpoint settings.
type YextConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Locale  string `yaml:"locale" mapstructure:"locale"`
}

// CacheConfig configures the file-backed response cache.
type CacheConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache time-to-live as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// FetcherConfig configures the shared HTTP retry helper.
type FetcherConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ScanConfig holds orchestrator-wide defaults; direct connections use a
// smaller pool than proxied connections to avoid overwhelming one source IP.
type ScanConfig struct {
	Workers        int `yaml:"workers" mapstructure:"workers"`
	WorkersProxied int `yaml:"workers_proxied" mapstructure:"workers_proxied"`
}

// BoundsConfig is a retailer's bounding box.
type BoundsConfig struct {
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLng float64 `yaml:"min_lng" mapstructure:"min_lng"`
	MaxLng float64 `yaml:"max_lng" mapstructure:"max_lng"`
}

// RetailerConfig is one retailer's scan profile.
type RetailerConfig struct {
	Bounds       BoundsConfig `yaml:"bounds" mapstructure:"bounds"`
	SpacingMiles float64      `yaml:"spacing_miles" mapstructure:"spacing_miles"`
	RadiusMiles  float64      `yaml:"radius_miles" mapstructure:"radius_miles"`
	Proxied      bool         `yaml:"proxied" mapstructure:"proxied"`
	APIKey       string       `yaml:"api_key" mapstructure:"api_key"`
}

// Profile is a retailer profile with all defaults resolved; this is what the
// scan command feeds the orchestrator and what dry-run prints.
type Profile struct {
	Retailer     string       `yaml:"retailer"`
	Bounds       BoundsConfig `yaml:"bounds"`
	SpacingMiles float64      `yaml:"spacing_miles"`
	RadiusMiles  float64      `yaml:"radius_miles"`
	Workers      int          `yaml:"workers"`
	Proxied      bool         `yaml:"proxied"`
	APIKey       string       `yaml:"-"`
}

// GridBounds converts the profile's bounding box for the grid generator.
func (p Profile) GridBounds() grid.Bounds {
	return grid.Bounds{
		LatMin: p.Bounds.MinLat,
		LatMax: p.Bounds.MaxLat,
		LngMin: p.Bounds.MinLng,
		LngMax: p.Bounds.MaxLng,
	}
}

// Profile resolves the named retailer against scan-wide defaults. An unknown
// retailer or an empty bounding box is a configuration error.
func (c *Config) Profile(name string) (Profile, error) {
	rc, ok := c.Retailers[name]
	if !ok {
		return Profile{}, eris.Errorf("config: unknown retailer %q", name)
	}
	if rc.Bounds.MinLat == 0 && rc.Bounds.MaxLat == 0 && rc.Bounds.MinLng == 0 && rc.Bounds.MaxLng == 0 {
		return Profile{}, eris.Errorf("config: retailer %q has no bounding box", name)
	}

	p := Profile{
		Retailer:     name,
		Bounds:       rc.Bounds,
		SpacingMiles: rc.SpacingMiles,
		RadiusMiles:  rc.RadiusMiles,
		Proxied:      rc.Proxied,
		APIKey:       rc.APIKey,
	}
	if p.SpacingMiles == 0 {
		p.SpacingMiles = 50
	}
	if p.RadiusMiles == 0 {
		p.RadiusMiles = 50
	}
	if p.APIKey == "" {
		p.APIKey = c.Yext.APIKey
	}
	p.Workers = c.Scan.Workers
	if p.Proxied {
		p.Workers = c.Scan.WorkersProxied
	}
	return p, nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOCATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "locator.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("yext.base_url", "https://liveapi.yext.com/v2/accounts/me/search")
	v.SetDefault("yext.locale", "en")
	v.SetDefault("cache.dir", ".locator-cache")
	v.SetDefault("cache.ttl_hours", 720)
	v.SetDefault("fetcher.user_agent", "locator-cli/1.0")
	v.SetDefault("fetcher.timeout_secs", 30)
	v.SetDefault("fetcher.max_retries", 3)
	v.SetDefault("fetcher.rate_limit", 10.0)
	v.SetDefault("scan.workers", 6)
	v.SetDefault("scan.workers_proxied", 12)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
