package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTP       HTTP       `envPrefix:"HTTP_"`
	Log        Log        `envPrefix:"LOG_"`
	Redis      Redis      `envPrefix:"REDIS_"`
	Database   Database   `envPrefix:"DATABASE_"`
	Scanner    Scanner    `envPrefix:"SCAN_"`
	Dispatcher Dispatcher `envPrefix:"DISPATCH_"`
	Telegram   Telegram   `envPrefix:"TELEGRAM_"`
	Time       Time
}

type HTTP struct {
	Port int `env:"PORT" envDefault:"8080" validate:"gt=0,lt=65536"`
}

type Log struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	Pretty bool   `env:"PRETTY" envDefault:"false"`
}

type Redis struct {
	Addr          string        `env:"ADDR" envDefault:"localhost:6379" validate:"required"`
	Password      string        `env:"PASSWORD"`
	DB            int           `env:"DB" envDefault:"0" validate:"gte=0"`
	StreamKey     string        `env:"STREAM_KEY" envDefault:"reminders:stream" validate:"required"`
	Group         string        `env:"GROUP" envDefault:"reminders" validate:"required"`
	ScheduledZSet string        `env:"SCHEDULED_ZSET" envDefault:"reminders:scheduled" validate:"required"`
	DLQStreamKey  string        `env:"DLQ_STREAM_KEY" envDefault:"reminders:dlq" validate:"required"`
	StateTTL      time.Duration `env:"STATE_TTL" envDefault:"168h" validate:"gte=0"`
	// ReclaimIdle is how long a claimed job may stay unacked before another
	// consumer takes it over. Zero disables reclaiming.
	ReclaimIdle time.Duration `env:"RECLAIM_IDLE" envDefault:"5m" validate:"gte=0"`
}

type Database struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres"`
	DSN         string `env:"DSN" envDefault:"file:tasks.db" validate:"required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type Scanner struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"30s" validate:"gt=0"`
	Lookahead time.Duration `env:"LOOKAHEAD" envDefault:"10m" validate:"gt=0"`
}

type Dispatcher struct {
	MaxAttempts       int           `env:"MAX_ATTEMPTS" envDefault:"3" validate:"gte=1"`
	RetryDelay        time.Duration `env:"RETRY_DELAY" envDefault:"60s" validate:"gt=0"`
	Backoff           string        `env:"BACKOFF" envDefault:"fixed" validate:"oneof=fixed exponential"`
	MaxBackoff        time.Duration `env:"MAX_BACKOFF" envDefault:"10m" validate:"gtefield=RetryDelay"`
	Workers           int           `env:"WORKERS" envDefault:"4" validate:"gte=1"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`
	ClaimBlock        time.Duration `env:"CLAIM_BLOCK" envDefault:"5s" validate:"gt=0"`
	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1s" validate:"gt=0"`
}

type Telegram struct {
	Token   string `env:"TOKEN"`
	BaseURL string `env:"BASE_URL" envDefault:"https://api.telegram.org" validate:"url"`
}

// Time holds the canonical zone used for all deadline comparisons and the
// zone deadlines are shown in.
type Time struct {
	CanonicalZone string `env:"CANONICAL_TZ" envDefault:"UTC" validate:"required"`
	DisplayZone   string `env:"DISPLAY_TZ" envDefault:"UTC"`

	canonical *time.Location
	display   *time.Location
}

// Canonical returns the resolved canonical zone.
func (t Time) Canonical() *time.Location {
	if t.canonical == nil {
		return time.UTC
	}
	return t.canonical
}

// Display returns the resolved display zone.
func (t Time) Display() *time.Location {
	if t.display == nil {
		return time.UTC
	}
	return t.display
}

var validate = validator.New()

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom builds a Config from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := c.Time.resolve(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *Time) resolve() error {
	canonical, err := time.LoadLocation(t.CanonicalZone)
	if err != nil {
		return fmt.Errorf("canonical zone %q: %w", t.CanonicalZone, err)
	}
	t.canonical = canonical

	name := t.DisplayZone
	if name == "" {
		name = "UTC"
	}
	display, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("zone", name).Msg("unknown display zone, falling back to UTC")
		display = time.UTC
	}
	t.display = display
	return nil
}
