package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	CartStoreMemory   = "memory"
	CartStoreSQLite   = "sqlite"
	CartStorePostgres = "postgres"
	CartStoreRedis    = "redis"

	CartBusAuto  = "auto"
	CartBusLocal = "local"
	CartBusRedis = "redis"
)

type Config struct {
	LogMode  string `env:"LOG_MODE" envDefault:"development"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	APIBaseURL       string `env:"STOREFRONT_API_BASE_URL" envDefault:"http://localhost:3000/api"`
	TransportRetries int    `env:"TRANSPORT_RETRIES" envDefault:"2"`
	RetryDelayMS     int    `env:"TRANSPORT_RETRY_DELAY_MS" envDefault:"500"`
	TimeoutSeconds   int    `env:"TRANSPORT_TIMEOUT_SECONDS" envDefault:"30"`
	UIDHeader        string `env:"UID_HEADER" envDefault:"X-User-ID"`

	CartStore    string `env:"CART_STORE" envDefault:"memory"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"storefront.db"`
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix  string `env:"REDIS_CART_PREFIX" envDefault:"cart:"`
	RedisChannel string `env:"REDIS_CART_CHANNEL" envDefault:"cart-events"`
	InstanceID   string `env:"INSTANCE_ID"`
	CartTTLHours int    `env:"CART_TTL_HOURS" envDefault:"720"`
	// CartBus picks how cart changes reach other instances. auto uses redis
	// for the shared stores (redis, postgres) and an in-process bus otherwise.
	CartBus       string        `env:"CART_BUS" envDefault:"auto"`
	CartCacheIdle time.Duration `env:"CART_CACHE_IDLE" envDefault:"30m"`
	SessionTTL    time.Duration `env:"CHECKOUT_SESSION_TTL" envDefault:"2h"`

	JWTSecretKey    string        `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"storefront"`
	ServiceTokenTTL time.Duration `env:"SERVICE_TOKEN_TTL" envDefault:"1h"`

	PaymentCurrency     string `env:"PAYMENT_CURRENCY" envDefault:"usd"`
	RecordTimeoutSecond int    `env:"PAYMENT_RECORD_TIMEOUT_SECONDS" envDefault:"30"`

	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`

	OtelEnabled     bool    `env:"OTEL_ENABLED"`
	OtelServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"storefront"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLER_RATIO" envDefault:"0.1"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     string  `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	OtelInsecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	Version         string  `env:"APP_VERSION" envDefault:"dev"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CartStore = strings.ToLower(strings.TrimSpace(cfg.CartStore))
	cfg.CartBus = strings.ToLower(strings.TrimSpace(cfg.CartBus))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.CartStore {
	case CartStoreMemory, CartStoreSQLite, CartStoreRedis:
	case CartStorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN required when CART_STORE=%s", CartStorePostgres)
		}
	default:
		return fmt.Errorf("unknown CART_STORE %q", c.CartStore)
	}
	switch c.CartBus {
	case CartBusAuto, CartBusLocal, CartBusRedis:
	default:
		return fmt.Errorf("unknown CART_BUS %q", c.CartBus)
	}
	if c.TransportRetries < 0 {
		return fmt.Errorf("TRANSPORT_RETRIES must be >= 0, got %d", c.TransportRetries)
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("STOREFRONT_API_BASE_URL required")
	}
	return nil
}

func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// AllowDevSkip gates the checkout shortcut to non-production builds.
func (c Config) AllowDevSkip() bool { return !c.Production() }

// RedisCartBus reports whether cart changes are shared over redis.
func (c Config) RedisCartBus() bool {
	switch c.CartBus {
	case CartBusRedis:
		return true
	case CartBusLocal:
		return false
	}
	return c.CartStore == CartStoreRedis || c.CartStore == CartStorePostgres
}

func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

func (c Config) RecordTimeout() time.Duration {
	return time.Duration(c.RecordTimeoutSecond) * time.Second
}
