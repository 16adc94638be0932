// Package config loads the server configuration from an optional YAML file,
// an optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config is the application's configuration model.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Events   EventsConfig   `yaml:"events"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Security SecurityConfig `yaml:"security"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
	CORSOrigins    []string      `yaml:"corsOrigins"`
	// Per-client token bucket on mutating routes. 0 disables limiting.
	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type CacheConfig struct {
	// 0 disables the tweet cache.
	TTLMinutes int `yaml:"ttlMinutes"`
}

type EventsConfig struct {
	QueueSize      int           `yaml:"queueSize"`
	DeliverTimeout time.Duration `yaml:"deliverTimeout"`
}

// KafkaConfig enables the Kafka sink when Brokers is set.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"` // comma separated
	Topic   string `yaml:"topic"`
}

// RedisConfig enables the Redis sink when Addr is set.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// RealtimeConfig is the listener for /hub, /metrics and /health. An empty
// Addr disables it.
type RealtimeConfig struct {
	Addr       string `yaml:"addr"`
	SendBuffer int    `yaml:"sendBuffer"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcryptCost"`
}

// Default returns a configuration that runs with no external services.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "3000",
			HandlerTimeout: 30 * time.Second,
			CORSOrigins:    []string{"http://localhost:5173"},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Store:    StoreConfig{Driver: DriverSQLite, DSN: "socialfeed.db"},
		Cache:    CacheConfig{TTLMinutes: 5},
		Events:   EventsConfig{QueueSize: 1024, DeliverTimeout: 5 * time.Second},
		Kafka:    KafkaConfig{Topic: "tweet-events"},
		Redis:    RedisConfig{Channel: "tweet-events"},
		Realtime: RealtimeConfig{Addr: ":3001", SendBuffer: 64},
		Security: SecurityConfig{BcryptCost: 10},
	}
}

// Load returns Default overlaid with the YAML file at path, if any, and
// then with the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.ResolveEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads KEY=VALUE pairs from files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ResolveEnv overrides fields from environment variables that are set.
func (c *Config) ResolveEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s value %q", key, v))
			return
		}
		*dst = n
	}

	str("PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	num("CACHE_TTL_MINUTES", &c.Cache.TTLMinutes)
	str("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_CHANNEL", &c.Redis.Channel)
	str("REALTIME_ADDR", &c.Realtime.Addr)
	num("RATE_LIMIT_BURST", &c.Server.RateLimitBurst)

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_RPS value %q", v))
		} else {
			c.Server.RateLimitRPS = rps
		}
	}

	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.HandlerTimeout <= 0 {
		errs = append(errs, errors.New("server.handlerTimeout must be positive"))
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, errors.New("server.rateLimitRps cannot be negative"))
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		errs = append(errs, errors.New("server.rateLimitBurst must be at least 1 when limiting is on"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of json, console", c.Log.Format))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, mysql", c.Store.Driver))
	}

	if c.Cache.TTLMinutes < 0 {
		errs = append(errs, errors.New("cache.ttlMinutes cannot be negative"))
	}
	if c.Events.QueueSize < 1 {
		errs = append(errs, errors.New("events.queueSize must be at least 1"))
	}
	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when kafka.brokers is set"))
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		errs = append(errs, errors.New("redis.channel is required when redis.addr is set"))
	}

	return errors.Join(errs...)
}

// CacheTTL returns the tweet cache TTL; zero means disabled.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
