package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration. Values come from an optional
// config.yaml plus environment overrides with the EIS_ prefix
// (EIS_DATABASE_DSN, EIS_REDIS_ADDR, ...).
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
		Mode string `mapstructure:"mode"`
	} `mapstructure:"server"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	MessageCenter struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"message_center"`

	DQService struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"dq_service"`

	// Cooling is the operator surface of the cooling-down filter:
	// a global switch and a comma-separated event-type list.
	Cooling struct {
		IsOpen     bool   `mapstructure:"is_open"`
		EventTypes string `mapstructure:"event_types"`
	} `mapstructure:"cooling"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Notify struct {
		MaxInFlight int `mapstructure:"max_in_flight"`
	} `mapstructure:"notify"`

	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
}

// Load reads configuration from the given path (or the working directory
// when empty). A missing config file is fine; environment variables alone
// can carry the whole configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("EIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cooling.is_open", false)
	v.SetDefault("cooling.event_types", "")
	v.SetDefault("notify.max_in_flight", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}
	if cfg.MessageCenter.URL == "" {
		return nil, errors.New("message_center.url is required")
	}
	if cfg.DQService.URL == "" {
		return nil, errors.New("dq_service.url is required")
	}
	return &cfg, nil
}
