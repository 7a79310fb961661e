package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Tenancy  TenancyConfig  `yaml:"tenancy"`
	Plans    PlansConfig    `yaml:"plans"`
	Seed     SeedConfig     `yaml:"seed"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Name            string        `yaml:"name"`
	Version         string        `yaml:"version"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// APIConfig represents API configuration
type APIConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns the listen address
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// NATSConfig represents NATS configuration. An empty URL disables event publishing.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	ClientName        string        `yaml:"client_name"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TenancyConfig controls tenant resolution
type TenancyConfig struct {
	ReservedSubdomains []string `yaml:"reserved_subdomains"`
}

// PlansConfig holds plan limits. The pro plan is unlimited.
type PlansConfig struct {
	FreeNoteLimit *int `yaml:"free_note_limit"`
}

// SeedConfig controls bootstrap data
type SeedConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Password string `yaml:"password"`
}

// envOverrides are the environment variables that take precedence over the file
type envOverrides struct {
	DatabaseDriver string `envconfig:"DATABASE_DRIVER"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	NATSURL        string `envconfig:"NATS_URL"`
	JWTSecret      string `envconfig:"JWT_SECRET"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	APIPort        int    `envconfig:"API_PORT"`
	SeedEnabled    *bool  `envconfig:"SEED_ENABLED"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration, applies environment overrides and defaults,
// and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.DatabaseDriver != "" {
		c.Database.Driver = env.DatabaseDriver
	}
	if env.DatabaseURL != "" {
		c.Database.DSN = env.DatabaseURL
	}
	if env.NATSURL != "" {
		c.NATS.URL = env.NATSURL
	}
	if env.JWTSecret != "" {
		c.JWT.Secret = env.JWTSecret
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.APIPort != 0 {
		c.API.Port = env.APIPort
	}
	if env.SeedEnabled != nil {
		c.Seed.Enabled = *env.SeedEnabled
	}
	return nil
}

// setDefaults fills in unset values
func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "notes-server"
	}
	if c.Server.Version == "" {
		c.Server.Version = "1.0.0"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.API.Port == 0 {
		c.API.Port = 5000
	}
	if c.API.RequestTimeout == 0 {
		c.API.RequestTimeout = 30 * time.Second
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}

	if c.NATS.ClientName == "" {
		c.NATS.ClientName = c.Server.Name
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "notes"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}

	if c.JWT.Issuer == "" {
		c.JWT.Issuer = c.Server.Name
	}
	if c.JWT.TokenTTL == 0 {
		c.JWT.TokenTTL = 24 * time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if len(c.Tenancy.ReservedSubdomains) == 0 {
		c.Tenancy.ReservedSubdomains = []string{"www", "api"}
	}
	for i, s := range c.Tenancy.ReservedSubdomains {
		c.Tenancy.ReservedSubdomains[i] = strings.ToLower(s)
	}

	if c.Plans.FreeNoteLimit == nil {
		limit := 3
		c.Plans.FreeNoteLimit = &limit
	}

	if c.Seed.Password == "" {
		c.Seed.Password = "password"
	}
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.TokenTTL < 0 {
		errs = append(errs, errors.New("jwt.token_ttl must be positive"))
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Plans.FreeNoteLimit != nil && *c.Plans.FreeNoteLimit < 0 {
		errs = append(errs, errors.New("plans.free_note_limit must not be negative"))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}

	return errors.Join(errs...)
}
