// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/go-painting-orderflow/internal/views"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
)

// Event backends.
const (
	EventsNone     = "none"
	EventsSQS      = "sqs"
	EventsRabbitMQ = "rabbitmq"
)

type Config struct {
	Service  string         `yaml:"service"`
	LogLevel string         `yaml:"log_level"`
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	AWS      AWSConfig      `yaml:"aws"`
	Events   EventsConfig   `yaml:"events"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Shopify  ShopifyConfig  `yaml:"shopify"`
	Views    ViewsConfig    `yaml:"views"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type HTTPConfig struct {
	Addr     string `yaml:"addr"`
	RunLocal bool   `yaml:"run_local"`
}

type StoreConfig struct {
	Backend          string        `yaml:"backend"`
	OrdersTable      string        `yaml:"orders_table"`
	IdempotencyTable string        `yaml:"idempotency_table"`
	IdempotencyTTL   time.Duration `yaml:"idempotency_ttl"`
}

type AWSConfig struct {
	Region           string `yaml:"region"`
	EndpointOverride string `yaml:"endpoint_override"`
}

type EventsConfig struct {
	Backend  string `yaml:"backend"`
	QueueURL string `yaml:"queue_url"`
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

type ShopifyConfig struct {
	Store         string `yaml:"store"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type ViewsConfig struct {
	// UnknownRole is "allow" or "deny".
	UnknownRole string `yaml:"unknown_role"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Service:  "orderflow",
		LogLevel: "info",
		HTTP:     HTTPConfig{Addr: ":8080"},
		Store: StoreConfig{
			Backend:        StoreMemory,
			IdempotencyTTL: 48 * time.Hour,
		},
		AWS:     AWSConfig{Region: "us-east-1"},
		Events:  EventsConfig{Backend: EventsNone, Exchange: "orders_workflow"},
		Metrics: MetricsConfig{Namespace: "PaintingOrderflow"},
		Views:   ViewsConfig{UnknownRole: string(views.PolicyAllow)},
	}
}

// Load reads path (optional) and applies environment overrides.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"LOG_LEVEL":              &c.LogLevel,
		"HTTP_ADDR":              &c.HTTP.Addr,
		"STORE_BACKEND":          &c.Store.Backend,
		"ORDERS_TABLE":           &c.Store.OrdersTable,
		"IDEMPOTENCY_TABLE":      &c.Store.IdempotencyTable,
		"AWS_REGION":             &c.AWS.Region,
		"AWS_ENDPOINT_OVERRIDE":  &c.AWS.EndpointOverride,
		"EVENTS_BACKEND":         &c.Events.Backend,
		"EVENTS_QUEUE_URL":       &c.Events.QueueURL,
		"AMQP_URL":               &c.Events.AMQPURL,
		"SHOPIFY_STORE":          &c.Shopify.Store,
		"SHOPIFY_WEBHOOK_SECRET": &c.Shopify.WebhookSecret,
		"VIEWS_UNKNOWN_ROLE":     &c.Views.UnknownRole,
		"DATABASE_URL":           &c.Postgres.URL,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	for key, dst := range map[string]*bool{
		"RUN_LOCAL":       &c.HTTP.RunLocal,
		"METRICS_ENABLED": &c.Metrics.Enabled,
	} {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// Policy returns the configured unknown-role policy.
func (c Config) Policy() views.Policy {
	p, err := views.ParsePolicy(c.Views.UnknownRole)
	if err != nil {
		return views.PolicyAllow
	}
	return p
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case StoreMemory:
	case StoreDynamoDB:
		if c.Store.OrdersTable == "" {
			errs = append(errs, errors.New("store.orders_table is required for the dynamodb backend"))
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Events.Backend {
	case EventsNone:
	case EventsSQS:
		if c.Events.QueueURL == "" {
			errs = append(errs, errors.New("events.queue_url is required for the sqs backend"))
		}
	case EventsRabbitMQ:
		if c.Events.AMQPURL == "" {
			errs = append(errs, errors.New("events.amqp_url is required for the rabbitmq backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events backend %q", c.Events.Backend))
	}
	if _, err := views.ParsePolicy(c.Views.UnknownRole); err != nil {
		errs = append(errs, err)
	}
	if c.Store.IdempotencyTTL < 0 {
		errs = append(errs, errors.New("store.idempotency_ttl must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
