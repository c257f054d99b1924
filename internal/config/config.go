package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"` // session lifetime
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CountryCode   string `yaml:"country_code"`   // phone normalization prefix
		DeadlineGrace string `yaml:"deadline_grace"` // slack past time_limit before rejection
		QuestionTTL   string `yaml:"question_ttl"`   // question bank cache lifetime
	} `yaml:"quiz"`
	Cleanup struct {
		Interval string `yaml:"interval"` // sweep cadence, empty disables
		MaxAge   string `yaml:"max_age"`  // stale uncompleted attempt age
	} `yaml:"cleanup"`
	Fulfillment struct {
		WebhookURL string `yaml:"webhook_url"` // empty disables the hook
	} `yaml:"fulfillment"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
