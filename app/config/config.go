// Package config reads the server settings from INKWELL_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"inkwell/app/models"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every key.
const Prefix = "INKWELL_"

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

type Config struct {
	Addr             string        `json:"ADDR" validate:"required"`
	Store            string        `json:"STORE" validate:"oneof=badger postgres"`
	BadgerDir        string        `json:"BADGER_DIR" validate:"required_if=Store badger"`
	PostgresURL      string        `json:"POSTGRES_URL" validate:"required_if=Store postgres"`
	PostgresMaxConns int32         `json:"POSTGRES_MAX_CONNS" validate:"gte=1,lte=500"`
	Cache            string        `json:"CACHE" validate:"oneof=memory redis none"`
	RedisAddr        string        `json:"REDIS_ADDR" validate:"required_if=Cache redis"`
	CacheTTL         time.Duration `json:"CACHE_TTL" validate:"gt=0"`
	PageSize         int           `json:"PAGE_SIZE" validate:"gte=1,lte=100"`
	StrictPagination bool          `json:"STRICT_PAGINATION"`
	MediaDir         string        `json:"MEDIA_DIR"`
	SessionKey       string        `json:"SESSION_KEY" validate:"omitempty,min=32"`
	LogLevel         string        `json:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogFormat        string        `json:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout  time.Duration `json:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:             ":8080",
		Store:            StoreBadger,
		BadgerDir:        "data/badger",
		PostgresMaxConns: 10,
		Cache:            "memory",
		CacheTTL:         20 * time.Second,
		PageSize:         10,
		MediaDir:         "data/media",
		LogLevel:         "info",
		LogFormat:        "text",
		ShutdownTimeout:  10 * time.Second,
	}
}

// Load reads .env from the working directory, if present, then the process
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a validated Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	p := parser{getenv: getenv}

	p.str("ADDR", &cfg.Addr)
	p.str("STORE", &cfg.Store)
	p.str("BADGER_DIR", &cfg.BadgerDir)
	p.str("POSTGRES_URL", &cfg.PostgresURL)
	p.int32("POSTGRES_MAX_CONNS", &cfg.PostgresMaxConns)
	p.str("CACHE", &cfg.Cache)
	p.str("REDIS_ADDR", &cfg.RedisAddr)
	p.duration("CACHE_TTL", &cfg.CacheTTL)
	p.int("PAGE_SIZE", &cfg.PageSize)
	p.bool("STRICT_PAGINATION", &cfg.StrictPagination)
	p.str("MEDIA_DIR", &cfg.MediaDir)
	p.str("SESSION_KEY", &cfg.SessionKey)
	p.str("LOG_LEVEL", &cfg.LogLevel)
	p.str("LOG_FORMAT", &cfg.LogFormat)
	p.duration("SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	cfg.Store = strings.ToLower(cfg.Store)
	cfg.Cache = strings.ToLower(cfg.Cache)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings, reporting every bad key at once.
func (c *Config) Validate() error {
	err := models.Validator().Struct(c)
	if err == nil {
		return nil
	}
	fields := models.FieldErrors(err)
	if fields == nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, Prefix+k+" "+fields[k])
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// parser collects conversion errors so one run reports them all.
type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(Prefix + key))
	return v, v != ""
}

func (p *parser) fail(key, raw string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s%s=%q: %w", Prefix, key, raw, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) int32(key string, dst *int32) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = int32(n)
}

func (p *parser) bool(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}
