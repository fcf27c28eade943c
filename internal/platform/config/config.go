package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SNSGATE_"

// listKeys are read from the environment as comma-separated values.
var listKeys = map[string]struct{}{
	"sns.topicarns": {},
}

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	SNS     SNSConfig     `koanf:"sns"`
	Events  EventsConfig  `koanf:"events"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SNSConfig struct {
	// TopicArns is the allow-list of topics whose deliveries are accepted.
	TopicArns []string      `koanf:"topicarns"`
	Cert      CertConfig    `koanf:"cert"`
	Confirm   ConfirmConfig `koanf:"confirm"`
}

type CertConfig struct {
	CacheSize     int           `koanf:"cachesize"`
	CacheTTL      time.Duration `koanf:"cachettl"`
	FetchAttempts int           `koanf:"fetchattempts"`
	RetryDelay    time.Duration `koanf:"retrydelay"`
	FetchTimeout  time.Duration `koanf:"fetchtimeout"`
}

type ConfirmConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type EventsConfig struct {
	// Sink is "log" or "redis".
	Sink          string        `koanf:"sink"`
	BufferSize    int           `koanf:"buffersize"`
	BatchSize     int           `koanf:"batchsize"`
	FlushInterval time.Duration `koanf:"flushinterval"`
	Redis         RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Channel  string `koanf:"channel"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.port":            8080,
		"server.host":            "0.0.0.0",
		"log.level":              "info",
		"log.format":             "json",
		"sns.topicarns":          []string{},
		"sns.cert.cachesize":     50,
		"sns.cert.cachettl":      time.Minute,
		"sns.cert.fetchattempts": 3,
		"sns.cert.retrydelay":    100 * time.Millisecond,
		"sns.cert.fetchtimeout":  10 * time.Second,
		"sns.confirm.timeout":    10 * time.Second,
		"events.sink":            "log",
		"events.buffersize":      1024,
		"events.batchsize":       50,
		"events.flushinterval":   250 * time.Millisecond,
		"events.redis.addr":      "localhost:6379",
		"events.redis.db":        0,
		"events.redis.channel":   "snsgate:events",
		"metrics.enabled":        true,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// SNSGATE_SNS_CERT_CACHETTL -> sns.cert.cachettl
	_ = k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(key, envPrefix)),
			"_", ".",
		)
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
