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
// The admin CLI reads App, Client and Store; the twin reads App, Server, Cache,
// Database and Twin.
type Config struct {
	App      AppConfig
	Client   ClientConfig
	Store    StoreConfig
	Server   ServerConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Twin     TwinConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"pazzo-admin"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// ClientConfig holds settings for talking to the remote API.
type ClientConfig struct {
	BaseURL string `envconfig:"ADMIN_API_URL" default:"http://localhost:5000"`
	// Timeout bounds a single request; 0 disables it.
	Timeout       time.Duration `envconfig:"ADMIN_API_TIMEOUT" default:"30s"`
	ResourcesFile string        `envconfig:"ADMIN_RESOURCES_FILE" default:""`
}

// StoreConfig holds the local session store settings.
type StoreConfig struct {
	Path string `envconfig:"ADMIN_SESSION_DB" default:"./data/session.db"`
}

// ServerConfig holds twin HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"5000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// CacheConfig holds the twin token cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DatabaseConfig holds MySQL connection settings for the twin record store.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"pazzo"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// TwinConfig holds settings specific to the API twin.
type TwinConfig struct {
	DBType        string `envconfig:"TWIN_DB_TYPE" default:"sqlite"` // sqlite or mysql
	DBPath        string `envconfig:"TWIN_DB_PATH" default:"./data/twin.db"`
	AdminEmail    string `envconfig:"TWIN_ADMIN_EMAIL" default:"admin@example.com"`
	AdminPassword string `envconfig:"TWIN_ADMIN_PASSWORD" default:"admin"`
	RequireAuth   bool   `envconfig:"TWIN_REQUIRE_AUTH" default:"false"`
	MaxUploadMB   int64  `envconfig:"TWIN_MAX_UPLOAD_MB" default:"5"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (t *TwinConfig) MaxUploadBytes() int64 {
	return t.MaxUploadMB << 20
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
