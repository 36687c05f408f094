package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type ScraperConfig struct {
	UserAgent string `yaml:"userAgent"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

type RobotsConfig struct {
	Respect bool `yaml:"respect"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr returns the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type BackendConfig struct {
	URL string `yaml:"url"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Robots   RobotsConfig   `yaml:"robots"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Backend  BackendConfig  `yaml:"backend"`
}

// Load reads the YAML config, falling back to defaults when the file is
// absent, then applies environment overrides on top.
func Load(path string) *Config {
	cfg := defaults()

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			log.Fatalf("failed to decode config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("failed to open config file: %v", err)
	}

	applyEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 9090,
		},
		Scraper: ScraperConfig{
			TimeoutMs: 30000,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Backend: BackendConfig{
			URL: "http://localhost:3000",
		},
	}
}

// applyEnv layers the deployment environment over the file. These are
// the variables the backend's compose files already export.
func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
}
