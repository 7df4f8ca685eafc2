// Package config loads settings from defaults, an optional TOML file and
// REHEARSE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/abhisek/rehearse/internal/mastery"
	"github.com/abhisek/rehearse/internal/spacedrep"
)

// EnvPrefix prefixes every environment override, e.g. REHEARSE_DB_DSN.
const EnvPrefix = "REHEARSE"

// Config holds all settings.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Log      LogConfig      `mapstructure:"log"`
	Mastery  mastery.Policy `mapstructure:"mastery"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Reminder ReminderConfig `mapstructure:"reminder"`
}

// DBConfig selects the storage driver and connection string. An empty DSN
// means the default database file.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueueConfig holds the daily queue limits.
type QueueConfig struct {
	DailyNew    int `mapstructure:"daily_new"`
	DailyReview int `mapstructure:"daily_review"`
}

// ReminderConfig holds the daily reminder schedule.
type ReminderConfig struct {
	// At is the local wall-clock time of the reminder, "HH:MM".
	At string `mapstructure:"at"`
}

// Limits converts the queue settings into scheduler limits.
func (c *Config) Limits() spacedrep.Limits {
	return spacedrep.Limits{DailyNew: c.Queue.DailyNew, DailyReview: c.Queue.DailyReview}
}

// Load reads configuration. If path is empty, config.toml is looked up in
// the XDG config directory and the working directory; a missing file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Mastery.Validate(); err != nil {
		return err
	}
	if c.Queue.DailyNew < 0 || c.Queue.DailyReview < 0 {
		return fmt.Errorf("queue limits must not be negative: new=%d review=%d", c.Queue.DailyNew, c.Queue.DailyReview)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mastery.reviewing_min", mastery.DefaultReviewingMin)
	v.SetDefault("mastery.mastered_min", mastery.DefaultMasteredMin)

	limits := spacedrep.DefaultLimits()
	v.SetDefault("queue.daily_new", limits.DailyNew)
	v.SetDefault("queue.daily_review", limits.DailyReview)

	v.SetDefault("reminder.at", "09:00")
}
