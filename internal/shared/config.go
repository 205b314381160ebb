package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
//
// A Config is built once at startup and handed to the components that need it.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Provider    ProviderConfig    `toml:"provider"`
	KeepAlive   KeepAliveConfig   `toml:"keepalive"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
}

// DatabaseConfig contains database connection settings.
//
// URL accepts postgres:// URLs, sqlite:/// URLs, or a bare SQLite path.
type DatabaseConfig struct {
	URL          string `toml:"url" env:"DATABASE_URL"`
	MaxOpenConns int    `toml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `toml:"host" env:"HOST"`
	Port            int           `toml:"port" env:"PORT"`
	ReadTimeout     time.Duration `toml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `toml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// ProviderConfig contains Spotify endpoint and client behavior settings.
type ProviderConfig struct {
	AuthURL           string        `toml:"auth_url" env:"SPOTIFY_AUTH_URL"`
	TokenURL          string        `toml:"token_url" env:"SPOTIFY_TOKEN_URL"`
	APIURL            string        `toml:"api_url" env:"SPOTIFY_API_URL"`
	Timeout           time.Duration `toml:"timeout" env:"SPOTIFY_TIMEOUT"`
	RequestsPerSecond float64       `toml:"requests_per_second" env:"SPOTIFY_REQUESTS_PER_SECOND"`
}

// KeepAliveConfig contains settings for the self-ping task. An empty URL disables it.
type KeepAliveConfig struct {
	URL      string        `toml:"url" env:"KEEPALIVE_URL"`
	Interval time.Duration `toml:"interval" env:"KEEPALIVE_INTERVAL"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Load builds the process configuration: defaults, then the file at path when it exists,
// then environment variable overrides.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides fields from their env tags. Unset variables leave fields untouched.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks the settings the web service cannot start without.
func (c *Config) Validate() error {
	spotify := c.Credentials.Spotify
	switch {
	case spotify.ClientID == "":
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	case spotify.ClientSecret == "":
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	case spotify.RedirectURI == "":
		return fmt.Errorf("%w: spotify redirect_uri", ErrMissingCredentials)
	case c.Database.URL == "":
		return fmt.Errorf("%w: database url", ErrMissingConfig)
	case c.Server.Port <= 0:
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
