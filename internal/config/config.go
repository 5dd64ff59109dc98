// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port            string
	StoreBackend    string
	DBPath          string
	PostgresDSN     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisTTL        time.Duration
	JWTSecret       string
	LogLevel        string
	LogDev          bool
	MaxRooms        int
	AutosaveSpec    string
	AuctionSpec     string
	CleanupSpec     string
	RoomIdleTimeout time.Duration
	FinishedTTL     time.Duration
	CORSOrigins     []string
}

// Load reads the given env files (".env" when none are named) and then the
// process environment. Variables already set in the environment win over
// the files. A missing default .env is not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	var p parser
	cfg := Config{
		Port:            env("PORT", "8080"),
		StoreBackend:    env("STORE_BACKEND", "sqlite"),
		DBPath:          env("DB_PATH", "monopoly.db"),
		PostgresDSN:     env("POSTGRES_DSN", ""),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   env("REDIS_PASSWORD", ""),
		RedisDB:         p.int("REDIS_DB", 0),
		RedisTTL:        p.duration("REDIS_TTL", 24*time.Hour),
		JWTSecret:       env("JWT_SECRET", ""),
		LogLevel:        env("LOG_LEVEL", "info"),
		LogDev:          p.bool("LOG_DEV", false),
		MaxRooms:        p.int("MAX_ROOMS", 100),
		AutosaveSpec:    env("AUTOSAVE_SPEC", "@every 60s"),
		AuctionSpec:     env("AUCTION_SWEEP_SPEC", "@every 1s"),
		CleanupSpec:     env("CLEANUP_SPEC", "@every 5m"),
		RoomIdleTimeout: p.duration("ROOM_IDLE_TIMEOUT", 30*time.Minute),
		FinishedTTL:     p.duration("FINISHED_ROOM_TTL", 10*time.Minute),
		CORSOrigins:     list(env("CORS_ORIGINS", "*")),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	switch cfg.StoreBackend {
	case "sqlite", "postgres", "redis":
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "postgres" && cfg.PostgresDSN == "" {
		return Config{}, errors.New("POSTGRES_DSN is required for the postgres backend")
	}
	return cfg, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (p *parser) int(key string, def int) int {
	v := env(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) bool(key string, def bool) bool {
	v := env(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := env(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}
