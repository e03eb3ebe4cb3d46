// Package config loads service settings from defaults, an optional YAML file,
// a .env file and SEATS_ prefixed environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/spf13/viper"
)

const envPrefix = "SEATS"

type Config struct {
	Port             int    `mapstructure:"port"`
	Env              string `mapstructure:"env"`
	OtelCollectorUrl string `mapstructure:"otel_collector_url"`
	LogFile          string `mapstructure:"log_file"`

	DB struct {
		DSN          string        `mapstructure:"dsn"`
		MaxOpenConns int           `mapstructure:"max_open_conns"`
		MaxIdleTime  time.Duration `mapstructure:"max_idle_time"`
		LockTimeout  time.Duration `mapstructure:"lock_timeout"`
		Migrations   string        `mapstructure:"migrations"`
	} `mapstructure:"db"`

	Redis struct {
		URL          string        `mapstructure:"url"`
		MaxOpenConns int           `mapstructure:"max_open_conns"`
		MaxIdleConns int           `mapstructure:"max_idle_conns"`
		MaxIdleTime  time.Duration `mapstructure:"max_idle_time"`
	} `mapstructure:"redis"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Payments struct {
		Provider        string `mapstructure:"provider"`
		MockRedirectUrl string `mapstructure:"mock_redirect_url"`
	} `mapstructure:"payments"`

	Stripe struct {
		SecretKey     string `mapstructure:"secret_key"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		SuccessUrl    string `mapstructure:"success_url"`
		FailureUrl    string `mapstructure:"failure_url"`
	} `mapstructure:"stripe"`

	Booking struct {
		LockTTL             time.Duration `mapstructure:"lock_ttl"`
		PaymentHoldTTL      time.Duration `mapstructure:"payment_hold_ttl"`
		PaymentTimeout      time.Duration `mapstructure:"payment_timeout"`
		MaxSeatsPerRequest  int           `mapstructure:"max_seats_per_request"`
		PaymentHoldOverride string        `mapstructure:"payment_hold_override"`
		RetryAttempts       uint          `mapstructure:"retry_attempts"`
	} `mapstructure:"booking"`

	Worker struct {
		InstanceID    string        `mapstructure:"instance_id"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
	} `mapstructure:"worker"`

	Events struct {
		Driver        string   `mapstructure:"driver"`
		Brokers       []string `mapstructure:"brokers"`
		Topic         string   `mapstructure:"topic"`
		NatsURL       string   `mapstructure:"nats_url"`
		SubjectPrefix string   `mapstructure:"subject_prefix"`
		AmqpURL       string   `mapstructure:"amqp_url"`
		Exchange      string   `mapstructure:"exchange"`
	} `mapstructure:"events"`

	PaymentOutcomes struct {
		Topic   string `mapstructure:"topic"`
		GroupID string `mapstructure:"group_id"`
	} `mapstructure:"payment_outcomes"`
}

var defaults = map[string]any{
	"port":               3000,
	"env":                "dev",
	"otel_collector_url": "",
	"log_file":           "",

	"db.dsn":            "",
	"db.max_open_conns": 25,
	"db.max_idle_time":  15 * time.Minute,
	"db.lock_timeout":   2 * time.Second,
	"db.migrations":     "file://migrations",

	"redis.url":            "",
	"redis.max_open_conns": 25,
	"redis.max_idle_conns": 10,
	"redis.max_idle_time":  2 * time.Minute,

	"auth.jwt_secret": "",

	"payments.provider":          "mock",
	"payments.mock_redirect_url": "https://example.com/checkout.html",

	"stripe.secret_key":     "",
	"stripe.webhook_secret": "",
	"stripe.success_url":    "https://example.com/success.html",
	"stripe.failure_url":    "https://example.com/failure.html",

	"booking.lock_ttl":              5 * time.Minute,
	"booking.payment_hold_ttl":      15 * time.Minute,
	"booking.payment_timeout":       15 * time.Minute,
	"booking.max_seats_per_request": 10,
	"booking.payment_hold_override": string(domain.OverrideSameBooking),
	"booking.retry_attempts":        5,

	"worker.instance_id":    "",
	"worker.sweep_interval": 30 * time.Second,

	"events.driver":         "none",
	"events.brokers":        []string{},
	"events.topic":          "seat-events",
	"events.nats_url":       "",
	"events.subject_prefix": "seats.events",
	"events.amqp_url":       "",
	"events.exchange":       "seat-events",

	"payment_outcomes.topic":    "payment-outcomes",
	"payment_outcomes.group_id": "seat-reservation-worker",
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	if !domain.PaymentHoldOverride(c.Booking.PaymentHoldOverride).Valid() {
		errs = append(errs, fmt.Errorf("booking.payment_hold_override must be %q or %q",
			domain.OverrideSameBooking, domain.OverrideAnyHold))
	}

	if c.Booking.LockTTL <= 0 {
		errs = append(errs, errors.New("booking.lock_ttl must be positive"))
	}

	switch c.Payments.Provider {
	case "stripe":
		if c.Stripe.SecretKey == "" || c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("stripe provider needs stripe.secret_key and stripe.webhook_secret"))
		}
	case "mock", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown payments.provider %q", c.Payments.Provider))
	}

	switch c.Events.Driver {
	case "", "none", "nats", "amqp":
	case "kafka":
		if len(c.Events.Brokers) == 0 {
			errs = append(errs, errors.New("kafka events need events.brokers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events.driver %q", c.Events.Driver))
	}

	return errors.Join(errs...)
}
