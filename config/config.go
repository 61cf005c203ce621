package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/examnotify/exam-api/internal/channel"
	"github.com/examnotify/exam-api/internal/repository/postgres"
	"github.com/examnotify/exam-api/internal/service/calendar"
	"github.com/examnotify/exam-api/pkg/messaging/redis"
)

type Config struct {
	Server     ServerConfig            `mapstructure:"server"`
	Database   postgres.DatabaseConfig `mapstructure:"database"`
	Redis      redis.Config            `mapstructure:"redis"`
	SMTP       channel.SMTPConfig      `mapstructure:"smtp"`
	SMS        channel.SMSConfig       `mapstructure:"sms"`
	Calendar   calendar.Config         `mapstructure:"calendar"`
	Sweep      SweepConfig             `mapstructure:"sweep"`
	RateLimit  RateLimitConfig         `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig        `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type MonitoringConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// LoadConfig reads config.yaml from the working directory or ./config,
// with environment variables taking precedence. A missing file is not
// fatal; everything can come from the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("EXAMAPI")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.maxretries", 3)
	viper.SetDefault("redis.poolsize", 10)

	viper.SetDefault("smtp.port", 587)

	viper.SetDefault("calendar.state_ttl", 15*time.Minute)
	viper.SetDefault("calendar.landing_url", "/")
	viper.SetDefault("calendar.error_url", "/calendar/error")

	viper.SetDefault("sweep.interval", time.Minute)

	viper.SetDefault("rate_limit.rps", 100)
	viper.SetDefault("rate_limit.burst", 200)

	viper.SetDefault("monitoring.namespace", "exam_api")
}
