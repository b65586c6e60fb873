package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/parkdir/parkdir/internal/address"
	"github.com/parkdir/parkdir/internal/compat"
)

// Config holds all application configuration
type Config struct {
	// Directory
	DirectoryURL string        `mapstructure:"directory_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// Network
	DefaultPort  int    `mapstructure:"default_port"`
	PlayerName   string `mapstructure:"player_name"`
	LocalVersion string `mapstructure:"local_version"`

	// Favourites: a JSON file unless a database URL is given
	FavouritesFile string `mapstructure:"favourites_file"`
	DatabaseURL    string `mapstructure:"database_url"`

	// Local API
	HTTPAddr        string        `mapstructure:"http_addr"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshRate     float64       `mapstructure:"refresh_rate"` // refresh requests per second per client
	RefreshBurst    int           `mapstructure:"refresh_burst"`

	v *viper.Viper
}

// Dir returns the directory holding parkdir's files
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "parkdir")
}

// Load reads configuration from an optional YAML file and PARKDIR_*
// environment variables. An empty configFile looks for parkdir.yml in the
// working directory and in Dir().
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("directory_url", "")
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("default_port", address.DefaultPort)
	v.SetDefault("player_name", "Player")
	v.SetDefault("local_version", compat.Version)
	v.SetDefault("favourites_file", filepath.Join(Dir(), "servers.json"))
	v.SetDefault("database_url", "")
	v.SetDefault("http_addr", "127.0.0.1:8080")
	v.SetDefault("refresh_interval", "0s")
	v.SetDefault("refresh_rate", 1.0)
	v.SetDefault("refresh_burst", 3)

	v.SetEnvPrefix("parkdir")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("parkdir")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DefaultPort < 1 || c.DefaultPort > 65535 {
		return fmt.Errorf("default_port %d out of range", c.DefaultPort)
	}
	if c.FavouritesFile == "" && c.DatabaseURL == "" {
		return fmt.Errorf("favourites_file or database_url is required")
	}
	if c.RefreshRate <= 0 {
		return fmt.Errorf("refresh_rate must be positive")
	}
	if c.RefreshBurst < 1 {
		c.RefreshBurst = 1
	}
	if c.RefreshInterval < 0 {
		c.RefreshInterval = 0
	}
	return nil
}

// ConfigFile returns the file settings are read from and written to
func (c *Config) ConfigFile() string {
	if c.v == nil {
		return ""
	}
	if used := c.v.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(Dir(), "parkdir.yml")
}

// SetPlayerName stores a new player name and writes it to the config file
func (c *Config) SetPlayerName(name string) error {
	c.PlayerName = name
	if c.v == nil {
		return nil
	}

	c.v.Set("player_name", name)

	path := c.ConfigFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := c.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
