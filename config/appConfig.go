package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxWebhookBytes   int64         `yaml:"max_webhook_bytes"`
}

type StripeConfig struct {
	APIURL             string        `yaml:"api_url"`
	SecretKey          string        `yaml:"secret_key"`
	WebhookSecret      string        `yaml:"webhook_secret"`
	SignatureTolerance time.Duration `yaml:"signature_tolerance"`
	Timeout            time.Duration `yaml:"timeout"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"`
	Burst              int           `yaml:"burst"`
}

type CheckoutConfig struct {
	Currency         string   `yaml:"currency"`
	BaseURL          string   `yaml:"base_url"`
	AllowedCountries []string `yaml:"allowed_countries"`
	CollectPhone     bool     `yaml:"collect_phone"`
}

type FulfillmentConfig struct {
	StoreTimeout      time.Duration `yaml:"store_timeout"`
	MaxStockAttempts  int           `yaml:"max_stock_attempts"`
	StockRetryBackoff time.Duration `yaml:"stock_retry_backoff"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	File   string `yaml:"file"`
	Prefix string `yaml:"prefix"`
}

type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Stripe      StripeConfig      `yaml:"stripe"`
	Checkout    CheckoutConfig    `yaml:"checkout"`
	Fulfillment FulfillmentConfig `yaml:"fulfillment"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MaxWebhookBytes:   64 << 10,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			Password:     "postgres",
			DBName:       "postgres",
			SSLMode:      "disable",
			MaxOpenConns: 20,
		},
		Stripe: StripeConfig{
			APIURL:             "https://api.stripe.com",
			SignatureTolerance: 5 * time.Minute,
			Timeout:            10 * time.Second,
			RequestsPerSecond:  20,
			Burst:              5,
		},
		Checkout: CheckoutConfig{
			Currency:         "usd",
			BaseURL:          "http://localhost:8080",
			AllowedCountries: []string{"US"},
			CollectPhone:     true,
		},
		Fulfillment: FulfillmentConfig{
			StoreTimeout:      5 * time.Second,
			MaxStockAttempts:  5,
			StockRetryBackoff: 25 * time.Millisecond,
		},
		Kafka: KafkaConfig{
			Topic: "order.completed",
		},
		Log: LogConfig{
			Prefix: "[storefront]",
		},
	}
}

// LoadConfig reads the YAML file on top of the defaults and then applies
// environment overrides. An empty filename skips the file.
func LoadConfig(filename string) (*AppConfig, error) {
	config := DefaultConfig()

	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", filename, err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *AppConfig) applyEnv() {
	c.Postgres.applyEnv()
	c.Server.Addr = getEnv("STOREFRONT_ADDR", c.Server.Addr)
	c.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", c.Stripe.SecretKey)
	c.Stripe.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	c.Stripe.APIURL = getEnv("STRIPE_API_URL", c.Stripe.APIURL)
	c.Checkout.BaseURL = getEnv("CHECKOUT_BASE_URL", c.Checkout.BaseURL)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

// Validate checks the settings the HTTP server cannot run without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("stripe.secret_key is required"))
	}
	if c.Stripe.WebhookSecret == "" {
		errs = append(errs, errors.New("stripe.webhook_secret is required"))
	}
	if c.Checkout.Currency == "" {
		errs = append(errs, errors.New("checkout.currency is required"))
	}
	if c.Fulfillment.MaxStockAttempts < 1 {
		errs = append(errs, errors.New("fulfillment.max_stock_attempts must be at least 1"))
	}
	if c.Fulfillment.StoreTimeout <= 0 {
		errs = append(errs, errors.New("fulfillment.store_timeout must be positive"))
	}
	if c.Stripe.Timeout <= 0 {
		errs = append(errs, errors.New("stripe.timeout must be positive"))
	}
	return errors.Join(errs...)
}
