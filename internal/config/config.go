package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/config"
)

// Config holds all configuration for the storefront state service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`

	// Redis (guest wishlists)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Redis commands slower than this are logged; 0 disables.
	RedisSlowCommandThreshold time.Duration `env:"REDIS_SLOW_COMMAND_THRESHOLD" envDefault:"50ms"`

	// Guest data TTL in hours (default: 30 days)
	GuestTTLHours int `env:"GUEST_TTL_HOURS" envDefault:"720"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Remote cart/wishlist store
	CartStoreURL      string        `env:"CART_STORE_URL" envDefault:"http://localhost:8003"`
	WishlistStoreURL  string        `env:"WISHLIST_STORE_URL" envDefault:"http://localhost:8004"`
	RemoteTimeout     time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
	RemoteReadRetries int           `env:"REMOTE_READ_RETRIES" envDefault:"2"`

	// Sessions
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	SignInPath     string        `env:"SIGN_IN_PATH" envDefault:"/auth/sign-in"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SecureCookies  bool          `env:"SECURE_COOKIES" envDefault:"false"`

	// Mutation rate limiting, per session
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Debug and browser access
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8" envSeparator:","`
	CORSOrigins       []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// GuestTTL returns the lifetime of guest wishlist keys.
func (c *Config) GuestTTL() time.Duration {
	return time.Duration(c.GuestTTLHours) * time.Hour
}

// Validate checks the settings env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.GuestTTLHours < 1 {
		return fmt.Errorf("GUEST_TTL_HOURS must be positive, got %d", c.GuestTTLHours)
	}
	for name, raw := range map[string]string{"CART_STORE_URL": c.CartStoreURL, "WISHLIST_STORE_URL": c.WishlistStoreURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.RemoteReadRetries < 0 {
		return fmt.Errorf("REMOTE_READ_RETRIES must not be negative")
	}
	if c.Environment == "production" && c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}
