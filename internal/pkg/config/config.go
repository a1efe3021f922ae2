package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Google    GoogleConfig    `mapstructure:"google"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// SweepTimeout bounds the long-running sweep routes, in seconds.
	SweepTimeout int `mapstructure:"sweep_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// GoogleConfig covers both places APIs: Area Insights (count/listing) and
// Place Details (hydration).
type GoogleConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	InsightsBaseURL string  `mapstructure:"insights_base_url"`
	PlacesBaseURL   string  `mapstructure:"places_base_url"`
	InsightsTimeout int     `mapstructure:"insights_timeout"` // seconds
	DetailsTimeout  int     `mapstructure:"details_timeout"`  // seconds
	RateQPS         float64 `mapstructure:"rate_qps"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"` // seconds
}

// SweepConfig holds the decomposition and hydration policy knobs.
type SweepConfig struct {
	Cap             int      `mapstructure:"cap"`
	WorklistCeiling int      `mapstructure:"worklist_ceiling"`
	MinRadiusM      float64  `mapstructure:"min_radius_m"`
	Workers         int      `mapstructure:"workers"`
	EstimateRadiusM float64  `mapstructure:"estimate_radius_m"`
	CostPerDetail   float64  `mapstructure:"cost_per_detail"`
	ProgressEvery   int      `mapstructure:"progress_every"`
	DefaultTypes    []string `mapstructure:"default_types"`
	MinRating       float64  `mapstructure:"min_rating"`
	MaxRating       float64  `mapstructure:"max_rating"`
}

type StorageConfig struct {
	// OutputDir receives one JSON file per completed sweep.
	OutputDir string `mapstructure:"output_dir"`
	Export    bool   `mapstructure:"export"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.sweep_timeout", 600)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "placesweep")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "placesweep")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.insights_base_url", "https://areainsights.googleapis.com")
	v.SetDefault("google.places_base_url", "https://places.googleapis.com")
	v.SetDefault("google.insights_timeout", 30)
	v.SetDefault("google.details_timeout", 20)
	v.SetDefault("google.rate_qps", 10)
	v.SetDefault("google.rate_burst", 5)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "placesweep/1.0 (+contact@placesweep.dev)")
	v.SetDefault("geocoder.timeout", 10)
	v.SetDefault("sweep.cap", 100)
	v.SetDefault("sweep.worklist_ceiling", 2048)
	v.SetDefault("sweep.min_radius_m", 50)
	v.SetDefault("sweep.workers", 16)
	v.SetDefault("sweep.estimate_radius_m", 10000)
	v.SetDefault("sweep.cost_per_detail", 0.02)
	v.SetDefault("sweep.progress_every", 25)
	v.SetDefault("sweep.default_types", []string{"restaurant"})
	v.SetDefault("sweep.min_rating", 4.5)
	v.SetDefault("sweep.max_rating", 5.0)
	v.SetDefault("storage.output_dir", "data")
	v.SetDefault("storage.export", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PLACESWEEP_DATABASE_HOST → database.host
	v.SetEnvPrefix("PLACESWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy unprefixed names still honored for deploys that predate the
	// config rework.
	_ = v.BindEnv("google.api_key", "PLACESWEEP_GOOGLE_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("storage.output_dir", "PLACESWEEP_STORAGE_OUTPUT_DIR", "OUTPUT_DIR")
	_ = v.BindEnv("sweep.workers", "PLACESWEEP_SWEEP_WORKERS", "MAX_WORKERS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
// The Google API key is deliberately not required here: the service boots
// without one and reports it through /v1/diag, failing only when a sweep is
// actually attempted.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.SweepTimeout <= 0 {
		errs = append(errs, "server.sweep_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Geocoder.UserAgent == "" {
		errs = append(errs, "geocoder.user_agent is required (nominatim rejects anonymous clients)")
	}
	if c.Sweep.Cap <= 0 {
		errs = append(errs, "sweep.cap must be positive")
	}
	if c.Sweep.WorklistCeiling <= 0 {
		errs = append(errs, "sweep.worklist_ceiling must be positive")
	}
	if c.Sweep.Workers <= 0 {
		errs = append(errs, "sweep.workers must be positive")
	}
	if c.Sweep.MinRating < 0 || c.Sweep.MaxRating > 5 || c.Sweep.MinRating > c.Sweep.MaxRating {
		errs = append(errs, fmt.Sprintf("sweep rating bounds must satisfy 0 <= min <= max <= 5, got %.1f..%.1f",
			c.Sweep.MinRating, c.Sweep.MaxRating))
	}
	if c.Storage.Export && c.Storage.OutputDir == "" {
		errs = append(errs, "storage.output_dir is required when storage.export is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
