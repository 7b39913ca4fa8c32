// Package config содержит логику чтения конфигурации мини-приложения.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Значения по умолчанию.
const (
	DefaultRunAddress         = "localhost:8080"
	DefaultStateURI           = "file://tavola-state.json"
	DefaultRestaurantAddress  = "ул. Советская, 1, Гомель, 246000"
	DefaultCurrency           = "BYN"
	DefaultPaymentDescription = "Заказ в La Tavola"
	DefaultRequestTimeout     = 10 * time.Second
	DefaultAdminRefresh       = 5 * time.Minute
)

// Config содержит параметры конфигурации мини-приложения.
type Config struct {
	RunAddress         string        `env:"RUN_ADDRESS"`
	APIBaseURL         string        `env:"API_BASE_URL"`
	StateURI           string        `env:"STATE_URI"`
	AMQPURL            string        `env:"AMQP_URL"`
	AMQPQueue          string        `env:"AMQP_QUEUE"`
	RestaurantAddress  string        `env:"RESTAURANT_ADDRESS"`
	Currency           string        `env:"CURRENCY"`
	PaymentDescription string        `env:"PAYMENT_DESCRIPTION"`
	UserID             string        `env:"USER_ID"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT"`
	AdminRefresh       time.Duration `env:"ADMIN_REFRESH_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", DefaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.APIBaseURL, "r", "", "restaurant API base URL")
	flag.StringVar(&cfg.StateURI, "s", DefaultStateURI, "local state storage URI (file://, postgres://, redis://)")
	flag.StringVar(&cfg.AMQPURL, "q", "", "AMQP URL for chat bot notifications")
	flag.StringVar(&cfg.UserID, "u", "", "user id for requests without identity header")
	flag.DurationVar(&cfg.RequestTimeout, "t", DefaultRequestTimeout, "restaurant API request timeout")

	flag.Parse()

	override(&cfg.RunAddress, envCfg.RunAddress)
	override(&cfg.APIBaseURL, envCfg.APIBaseURL)
	override(&cfg.StateURI, envCfg.StateURI)
	override(&cfg.AMQPURL, envCfg.AMQPURL)
	override(&cfg.UserID, envCfg.UserID)
	if envCfg.RequestTimeout > 0 {
		cfg.RequestTimeout = envCfg.RequestTimeout
	}

	setDefault(&cfg.RunAddress, DefaultRunAddress)
	setDefault(&cfg.StateURI, DefaultStateURI)
	setDefault(&cfg.RestaurantAddress, DefaultRestaurantAddress)
	setDefault(&cfg.Currency, DefaultCurrency)
	setDefault(&cfg.PaymentDescription, DefaultPaymentDescription)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.AdminRefresh <= 0 {
		cfg.AdminRefresh = DefaultAdminRefresh
	}

	return cfg, nil
}

func override(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}

func setDefault(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
