package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Torn    TornConfig
	Scanner ScannerConfig
	Finder  FinderConfig
	Cache   CacheConfig
	DB      DBConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"torn-bazaar-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// TornConfig holds upstream Torn API client settings. RequestDelay is the
// minimum spacing between consecutive upstream calls; the documented budget
// is ~100 requests/minute shared across the whole process.
type TornConfig struct {
	APIKey       string        `envconfig:"TORN_API_KEY" default:""`
	BaseURL      string        `envconfig:"TORN_BASE_URL" default:"https://api.torn.com"`
	RequestDelay time.Duration `envconfig:"TORN_REQUEST_DELAY" default:"750ms"`
	MaxRetries   int           `envconfig:"TORN_MAX_RETRIES" default:"2"`
	HTTPTimeout  time.Duration `envconfig:"TORN_HTTP_TIMEOUT" default:"30s"`
}

// ScannerConfig holds background full-scan settings.
type ScannerConfig struct {
	Enabled      bool          `envconfig:"SCAN_ENABLED" default:"true"`
	Interval     time.Duration `envconfig:"SCAN_INTERVAL" default:"15m"`
	BatchSize    int           `envconfig:"SCAN_BATCH_SIZE" default:"10"`
	RegistryPath string        `envconfig:"TRADER_REGISTRY_PATH" default:"./trader_ids.json"`
}

// FinderConfig holds live-search and cached-scan settings.
type FinderConfig struct {
	MatchTarget    int `envconfig:"FINDER_MATCH_TARGET" default:"10"`
	DefaultLimit   int `envconfig:"FINDER_DEFAULT_LIMIT" default:"20"`
	MaxLimit       int `envconfig:"FINDER_MAX_LIMIT" default:"50"`
	CachedMaxScans int `envconfig:"FINDER_CACHED_MAX_SCANS" default:"50"`
}

// CacheConfig holds TTL listing cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DBConfig holds persisted storage settings.
type DBConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"DB_PATH" default:"./data/bazaar.db"`
	// MySQL settings
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"bazaar"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MySQLDSN returns the MySQL data source name.
func (d *DBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
