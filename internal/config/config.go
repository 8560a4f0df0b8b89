package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Districts DistrictsConfig `yaml:"districts" mapstructure:"districts"`
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Lookup    LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	Gifts     GiftsConfig     `yaml:"gifts" mapstructure:"gifts"`
	Mugs      MugsConfig      `yaml:"mugs" mapstructure:"mugs"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DistrictsConfig selects the resolver backend and its boundary data.
type DistrictsConfig struct {
	Backend      string `yaml:"backend" mapstructure:"backend"` // "scan", "grid" or "postgis"
	SenatePath   string `yaml:"senate_path" mapstructure:"senate_path"`
	HousePath    string `yaml:"house_path" mapstructure:"house_path"`
	Object       string `yaml:"object" mapstructure:"object"`
	IDProperty   string `yaml:"id_property" mapstructure:"id_property"`
	NameProperty string `yaml:"name_property" mapstructure:"name_property"`
	TigerYear    int    `yaml:"tiger_year" mapstructure:"tiger_year"`
	TigerBaseURL string `yaml:"tiger_base_url" mapstructure:"tiger_base_url"`
	TempDir      string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// GridConfig configures the hosted interaction grid backend.
type GridConfig struct {
	SenateURL           string  `yaml:"senate_url" mapstructure:"senate_url"`
	HouseURL            string  `yaml:"house_url" mapstructure:"house_url"`
	Zoom                int     `yaml:"zoom" mapstructure:"zoom"`
	Property            string  `yaml:"property" mapstructure:"property"`
	RateLimit           float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs         int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheSize           int     `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTLSecs        int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	BreakerThreshold    int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// GeocodeConfig configures address geocoding.
type GeocodeConfig struct {
	Provider     string   `yaml:"provider" mapstructure:"provider"` // nominatim, census or chain
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit    float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Limit        int      `yaml:"limit" mapstructure:"limit"`
	CountryCodes string   `yaml:"country_codes" mapstructure:"country_codes"`
	Regions      []string `yaml:"regions" mapstructure:"regions"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLDays int      `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// LookupConfig configures address lookups.
type LookupConfig struct {
	BatchConcurrency int `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// DirectoryConfig locates the legislator roster.
type DirectoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GiftsConfig configures expenditure imports.
type GiftsConfig struct {
	SourceURL string `yaml:"source_url" mapstructure:"source_url"`
	TempDir   string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// MugsConfig configures the portrait scrapers.
type MugsConfig struct {
	HouseURL    string  `yaml:"house_url" mapstructure:"house_url"`
	SenateURL   string  `yaml:"senate_url" mapstructure:"senate_url"`
	Dir         string  `yaml:"dir" mapstructure:"dir"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the settings a command mode needs. Modes: "serve",
// "lookup", "import", "districts".
func (c *Config) Validate(mode string) error {
	var errs []string

	storeChecks := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.SQLitePath == "" {
				errs = append(errs, "store.sqlite_path is required for sqlite")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for postgres")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
	}
	resolverChecks := func() {
		switch c.Districts.Backend {
		case "scan":
			if c.Districts.SenatePath == "" && c.Districts.HousePath == "" {
				errs = append(errs, "districts.senate_path or districts.house_path is required")
			}
		case "grid":
			if c.Grid.SenateURL == "" && c.Grid.HouseURL == "" {
				errs = append(errs, "grid.senate_url or grid.house_url is required for the grid backend")
			}
			if c.Grid.Zoom < 0 || c.Grid.Zoom > 22 {
				errs = append(errs, "grid.zoom must be between 0 and 22")
			}
		case "postgis":
			if c.Store.Driver != "postgres" || c.Store.DatabaseURL == "" {
				errs = append(errs, "districts.backend postgis requires store.driver postgres with store.database_url")
			}
		default:
			errs = append(errs, fmt.Sprintf("districts.backend %q must be scan, grid or postgis", c.Districts.Backend))
		}
		switch c.Geocode.Provider {
		case "nominatim", "census", "chain":
		default:
			errs = append(errs, fmt.Sprintf("geocode.provider %q must be nominatim, census or chain", c.Geocode.Provider))
		}
	}

	switch mode {
	case "serve":
		storeChecks()
		resolverChecks()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "lookup":
		resolverChecks()
		if c.Lookup.BatchConcurrency < 1 || c.Lookup.BatchConcurrency > 32 {
			errs = append(errs, "lookup.batch_concurrency must be between 1 and 32")
		}
	case "import":
		storeChecks()
	case "districts":
		if c.Districts.TigerYear < 2010 {
			errs = append(errs, "districts.tiger_year must be >= 2010")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOBBYING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "lobbying.db")
	v.SetDefault("districts.backend", "scan")
	v.SetDefault("districts.senate_path", "data/senate.topojson")
	v.SetDefault("districts.house_path", "data/house.topojson")
	v.SetDefault("districts.id_property", "district")
	v.SetDefault("districts.name_property", "name")
	v.SetDefault("districts.tiger_year", 2024)
	v.SetDefault("districts.tiger_base_url", "https://www2.census.gov/geo/tiger")
	v.SetDefault("districts.temp_dir", "/tmp/lobbying-tiger")
	v.SetDefault("grid.zoom", 10)
	v.SetDefault("grid.property", "district")
	v.SetDefault("grid.rate_limit", 5)
	v.SetDefault("grid.timeout_secs", 15)
	v.SetDefault("grid.cache_size", 512)
	v.SetDefault("grid.cache_ttl_secs", 3600)
	v.SetDefault("grid.breaker_threshold", 5)
	v.SetDefault("grid.breaker_cooldown_secs", 30)
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "lobbying-cli/1.0")
	v.SetDefault("geocode.rate_limit", 1)
	v.SetDefault("geocode.limit", 10)
	v.SetDefault("geocode.country_codes", "us")
	v.SetDefault("geocode.regions", []string{"Missouri", "United States of America"})
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.cache_ttl_days", 90)
	v.SetDefault("lookup.batch_concurrency", 4)
	v.SetDefault("directory.path", "data/legislators.yaml")
	v.SetDefault("gifts.temp_dir", "/tmp/lobbying-gifts")
	v.SetDefault("mugs.house_url", "http://www.house.mo.gov/member.aspx")
	v.SetDefault("mugs.senate_url", "http://www.senate.mo.gov/13info/SenateRoster.htm")
	v.SetDefault("mugs.dir", "www/img/mugs")
	v.SetDefault("mugs.rate_limit", 2)
	v.SetDefault("mugs.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
