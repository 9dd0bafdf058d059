// Package config loads the portal's runtime settings from KABAR_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"kabaranime.id/portal/internal/i18n"
)

// Prefix is prepended to every environment variable name.
const Prefix = "KABAR_"

const minSessionSecret = 32

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig  `envPrefix:"HTTP_"`
	Paths    PathConfig
	Storage  StorageConfig `envPrefix:"STORAGE_"`
	Session  SessionConfig `envPrefix:"SESSION_"`
	Portal   PortalConfig
	Analytics AnalyticsConfig `envPrefix:"ANALYTICS_"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Dev      bool   `env:"DEV"`
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr         string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// PathConfig points at the on-disk templates, assets and content.
type PathConfig struct {
	Templates string `env:"TEMPLATES_DIR" envDefault:"templates"`
	Public    string `env:"PUBLIC_DIR" envDefault:"public"`
	Locales   string `env:"LOCALES_DIR" envDefault:"locales"`
	Content   string `env:"CONTENT_DIR" envDefault:"content"`
}

// StorageConfig selects the visitor preference store. An empty path keeps
// preferences in memory.
type StorageConfig struct {
	Path string `env:"PATH"`
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	Secret string        `env:"SECRET"`
	Secure bool          `env:"SECURE"`
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"720h"`
}

// AnalyticsConfig configures client-side instrumentation.
type AnalyticsConfig struct {
	GA4MeasurementID string `env:"GA4_ID"`
	Debug            bool   `env:"DEBUG"`
}

// PortalConfig tunes per-visitor behaviour.
type PortalConfig struct {
	DefaultLanguage string        `env:"DEFAULT_LANG" envDefault:"id"`
	ToastDuration   time.Duration `env:"TOAST_DURATION" envDefault:"5s"`
	VisitorIdleTTL  time.Duration `env:"VISITOR_IDLE_TTL" envDefault:"30m"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	ContentCacheTTL time.Duration `env:"CONTENT_CACHE_TTL" envDefault:"5m"`
}

// Language returns the configured default language.
func (p PortalConfig) Language() i18n.Language {
	l, _ := i18n.ParseLanguage(p.DefaultLanguage)
	return l
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads from the supplied map instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Validate checks cross-field constraints. Outside dev mode a strong session
// secret is required.
func (c Config) Validate() error {
	var bad []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		bad = append(bad, Prefix+"HTTP_ADDR")
	}
	if _, ok := i18n.ParseLanguage(c.Portal.DefaultLanguage); !ok {
		bad = append(bad, Prefix+"DEFAULT_LANG")
	}
	if c.Portal.ToastDuration <= 0 {
		bad = append(bad, Prefix+"TOAST_DURATION")
	}
	if c.Portal.VisitorIdleTTL <= 0 {
		bad = append(bad, Prefix+"VISITOR_IDLE_TTL")
	}
	if c.Portal.SweepInterval <= 0 {
		bad = append(bad, Prefix+"SWEEP_INTERVAL")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		bad = append(bad, Prefix+"BASE_URL")
	}
	if !c.Dev && len(c.Session.Secret) < minSessionSecret {
		bad = append(bad, Prefix+"SESSION_SECRET")
	}
	if len(bad) > 0 {
		return &ValidationError{fields: bad}
	}
	return nil
}
