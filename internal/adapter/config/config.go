package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/caarlos0/env/v6"
	"github.com/govalues/decimal"
)

type Config struct {
	Database *Database
	HTTP     *HTTP
	Token    *Token
	Pricing  *Pricing
	Cache    *Cache
	Notify   *Notify
	Tracing  *Tracing
	App      *App
}

const AppModeProduction = "PROD"
const AppModeDevelop = "DEV"

const (
	BrokerLog   = "log"
	BrokerAMQP  = "amqp"
	BrokerKafka = "kafka"
)

type App struct {
	LogLevel string `env:"LOG_LEVEL"`
	Mode     string `env:"APP_MODE"`
}

type Database struct {
	DSN string `env:"DATABASE_URI"`
}

type HTTP struct {
	HostString string `env:"RUN_ADDRESS"`
}

type Token struct {
	SymmetricKey string        `env:"TOKEN_SYMMETRIC_KEY"`
	TTL          time.Duration `env:"TOKEN_TTL" envDefault:"15m"`
}

// Pricing keeps amounts as strings until Amounts parses them.
type Pricing struct {
	FreeShippingThreshold string `env:"FREE_SHIPPING_THRESHOLD" envDefault:"50"`
	FlatShippingFee       string `env:"FLAT_SHIPPING_FEE" envDefault:"5"`
	Currency              string `env:"ORDER_CURRENCY" envDefault:"USD"`
	CatalogConcurrency    int    `env:"CATALOG_CONCURRENCY" envDefault:"4"`
	OrderNumberAttempts   int    `env:"ORDER_NUMBER_ATTEMPTS" envDefault:"5"`
}

type Cache struct {
	RedisAddr  string        `env:"REDIS_ADDR"`
	ProductTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"30s"`
}

type Notify struct {
	Broker       string        `env:"NOTIFY_BROKER" envDefault:"log"`
	AMQPURL      string        `env:"AMQP_URL"`
	AMQPExchange string        `env:"AMQP_EXCHANGE" envDefault:"order.exchange"`
	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string        `env:"KAFKA_TOPIC" envDefault:"notifications"`
	Workers      int           `env:"NOTIFY_WORKERS" envDefault:"2"`
	QueueSize    int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"128"`
	MaxAttempts  int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBackoff time.Duration `env:"NOTIFY_RETRY_BACKOFF" envDefault:"2s"`
	AdminEmail   string        `env:"ADMIN_EMAIL" envDefault:"admin@ecommerce.com"`
}

type Tracing struct {
	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
}

type PricingAmounts struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Currency              domain.Currency
}

func (p *Pricing) Amounts() (*PricingAmounts, error) {
	threshold, err := decimal.Parse(p.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("free shipping threshold: %w", err)
	}
	fee, err := decimal.Parse(p.FlatShippingFee)
	if err != nil {
		return nil, fmt.Errorf("flat shipping fee: %w", err)
	}
	if threshold.IsNeg() || fee.IsNeg() {
		return nil, fmt.Errorf("shipping amounts must not be negative")
	}
	currency := domain.Currency(p.Currency)
	if !currency.IsValid() {
		return nil, fmt.Errorf("unsupported order currency %q", p.Currency)
	}

	return &PricingAmounts{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		Currency:              currency,
	}, nil
}

func NewConfig() (*Config, error) {
	return parse(flag.CommandLine, nil)
}

func parse(fs *flag.FlagSet, args []string) (*Config, error) {
	var db Database
	var http HTTP
	var token Token
	var pricing Pricing
	var cache Cache
	var notify Notify
	var tracing Tracing
	var app App

	fs.StringVar(&db.DSN, "d", "", "Database string")
	fs.StringVar(&http.HostString, "a", `localhost:8080`, "HTTP server endpoint")
	fs.StringVar(&app.LogLevel, "l", `error`, "Log level")
	fs.StringVar(&app.Mode, "m", `DEV`, "PROD / DEV")
	if args == nil {
		flag.Parse()
	} else if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	err := env.Parse(&db)
	if err != nil {
		return nil, fmt.Errorf("error parsing env database config: %w", err)
	}
	err = env.Parse(&http)
	if err != nil {
		return nil, fmt.Errorf("error parsing http config: %w", err)
	}
	err = env.Parse(&app)
	if err != nil {
		return nil, fmt.Errorf("error parsing app config: %w", err)
	}
	err = env.Parse(&token)
	if err != nil {
		return nil, fmt.Errorf("error parsing token config: %w", err)
	}
	err = env.Parse(&pricing)
	if err != nil {
		return nil, fmt.Errorf("error parsing pricing config: %w", err)
	}
	if _, err = pricing.Amounts(); err != nil {
		return nil, fmt.Errorf("error parsing pricing config: %w", err)
	}
	err = env.Parse(&cache)
	if err != nil {
		return nil, fmt.Errorf("error parsing cache config: %w", err)
	}
	err = env.Parse(&notify)
	if err != nil {
		return nil, fmt.Errorf("error parsing notification config: %w", err)
	}
	switch notify.Broker {
	case BrokerLog, BrokerAMQP, BrokerKafka:
	default:
		return nil, fmt.Errorf("unknown notification broker %q", notify.Broker)
	}
	err = env.Parse(&tracing)
	if err != nil {
		return nil, fmt.Errorf("error parsing tracing config: %w", err)
	}

	config := Config{
		Database: &db,
		HTTP:     &http,
		Token:    &token,
		Pricing:  &pricing,
		Cache:    &cache,
		Notify:   &notify,
		Tracing:  &tracing,
		App:      &app,
	}

	return &config, nil
}
