package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	Port        string // HTTP listen port
	LogDir      string // logs directory
	DatabaseURL string // postgres DSN
	CronSecret  string // shared secret for the trigger endpoint

	// Minimum allowed check interval, enforced at monitor create/update.
	// Plan-dependent in the hosted product; a single value here.
	MinInterval time.Duration

	Engine EngineConfig
	SMTP   SMTPConfig

	TelegramBotToken string
	PushGatewayURL   string
}

// EngineConfig tunes the batch coordinator and the notification
// dispatcher. Loaded from an optional YAML file (ENGINE_CONFIG), with
// defaults applied for anything unset.
type EngineConfig struct {
	Concurrency     int `yaml:"concurrency"`      // max in-flight check pipelines
	NotifyRetries   int `yaml:"notify_retries"`   // retries per notification channel
	NotifyBackoffMS int `yaml:"notify_backoff_ms"`
	TriggerTimeoutS int `yaml:"trigger_timeout_seconds"` // time box for one cron pass
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != ""
}

func (e EngineConfig) NotifyBackoff() time.Duration {
	return time.Duration(e.NotifyBackoffMS) * time.Millisecond
}

func (e EngineConfig) TriggerTimeout() time.Duration {
	return time.Duration(e.TriggerTimeoutS) * time.Second
}

func defaultEngine() EngineConfig {
	return EngineConfig{
		Concurrency:     10,
		NotifyRetries:   2,
		NotifyBackoffMS: 500,
		TriggerTimeoutS: 60,
	}
}

// LoadEngineFile reads an engine tuning file and applies defaults for
// unset fields.
func LoadEngineFile(path string) (EngineConfig, error) {
	cfg := defaultEngine()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read engine config: %w", err)
	}

	var file EngineConfig
	if err := yaml.Unmarshal(b, &file); err != nil {
		return cfg, fmt.Errorf("parse engine config: %w", err)
	}

	if file.Concurrency > 0 {
		cfg.Concurrency = file.Concurrency
	}
	if file.NotifyRetries > 0 {
		cfg.NotifyRetries = file.NotifyRetries
	}
	if file.NotifyBackoffMS > 0 {
		cfg.NotifyBackoffMS = file.NotifyBackoffMS
	}
	if file.TriggerTimeoutS > 0 {
		cfg.TriggerTimeoutS = file.TriggerTimeoutS
	}

	return cfg, nil
}

func FromEnv() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	minInterval := 30 * time.Second
	if v := os.Getenv("MIN_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minInterval = time.Duration(n) * time.Second
		}
	}

	engine := defaultEngine()
	if path := os.Getenv("ENGINE_CONFIG"); path != "" {
		loaded, err := LoadEngineFile(path)
		if err != nil {
			log.Printf("Failed to load engine config %s, using defaults: %v", path, err)
		} else {
			engine = loaded
		}
	}

	smtpPort := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			smtpPort = n
		}
	}

	pushGateway := os.Getenv("PUSH_GATEWAY_URL")
	if pushGateway == "" {
		pushGateway = "https://exp.host/--/api/v2/push/send"
	}

	return Config{
		Port:        port,
		LogDir:      logDir,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CronSecret:  os.Getenv("CRON_SECRET"),
		MinInterval: minInterval,
		Engine:      engine,
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     smtpPort,
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		PushGatewayURL:   pushGateway,
	}
}
