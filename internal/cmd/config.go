package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mcdev12/gridmatch/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds the process configuration. Values come from an optional YAML
// file, with environment variables taking precedence over both the file and
// the defaults.
type Config struct {
	Port  string `yaml:"port"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Timer struct {
		DefaultSeconds int `yaml:"default_seconds"`
		LeaseTTLMillis int `yaml:"lease_ttl_millis"`
	} `yaml:"timer"`
}

func defaultConfig() *Config {
	cfg := &Config{Port: "8080"}
	cfg.Redis.Addr = "localhost:6379"
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.Timer.DefaultSeconds = models.DefaultTimerSeconds
	cfg.Timer.LeaseTTLMillis = 5000
	return cfg
}

func loadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.Timer.DefaultSeconds = getEnvAsInt("TIMER_DEFAULT_SECONDS", cfg.Timer.DefaultSeconds)
	cfg.Timer.LeaseTTLMillis = getEnvAsInt("TIMER_LEASE_TTL_MILLIS", cfg.Timer.LeaseTTLMillis)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
