// Package config loads server settings from defaults, an optional file, a
// .env file and EVIDENCA_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix prefixes every environment override, e.g. EVIDENCA_HTTP_ADDR.
const EnvPrefix = "EVIDENCA"

// Config is the full server configuration.
type Config struct {
	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	DB struct {
		Path string
	} `mapstructure:"db"`

	Log struct {
		Path  string
		Level string
	} `mapstructure:"log"`

	Admin struct {
		Username string
	} `mapstructure:"admin"`

	Auth struct {
		TokenTTL          time.Duration `mapstructure:"token_ttl"`
		AllowRegistration bool          `mapstructure:"allow_registration"`
	} `mapstructure:"auth"`

	Records struct {
		// KeepDeclined retains declined records with status "declined"
		// instead of deleting them.
		KeepDeclined bool `mapstructure:"keep_declined"`
	} `mapstructure:"records"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Images struct {
		MaxDimension int `mapstructure:"max_dimension"`
		JPEGQuality  int `mapstructure:"jpeg_quality"`
	} `mapstructure:"images"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.path", "evidenca.sqlite3")
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("admin.username", "Admin")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.allow_registration", false)
	v.SetDefault("records.keep_declined", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("images.max_dimension", 1024)
	v.SetDefault("images.jpeg_quality", 85)
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without overriding ones already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	err := gotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr must not be empty")
	}
	if c.DB.Path == "" {
		return errors.New("db.path must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		return fmt.Errorf("images.jpeg_quality must be between 1 and 100, got %d", c.Images.JPEGQuality)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
