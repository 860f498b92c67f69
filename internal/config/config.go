package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
	APIPort     int    `yaml:"api_port"`

	EnableScheduler bool `yaml:"enable_scheduler"`
	EnableCollector bool `yaml:"enable_collector"`

	// CollectorFlushSeconds is how often buffered metric deltas are written
	// to the database. Zero means the default of 10 seconds.
	CollectorFlushSeconds int `yaml:"collector_flush_seconds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
