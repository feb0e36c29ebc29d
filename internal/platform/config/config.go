// Package config loads the service configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RegistryCacheTTL bounds how long registry confirmations are reused.
const RegistryCacheTTL = 5 * time.Minute

// Config is the root configuration.
type Config struct {
	Server   Server   `mapstructure:",squash"`
	Redis    Redis    `mapstructure:",squash"`
	Postgres Postgres `mapstructure:",squash"`
	Registry Registry `mapstructure:",squash"`
	OCR      OCR      `mapstructure:",squash"`
	Notify   Notify   `mapstructure:",squash"`
	Auth     Auth     `mapstructure:",squash"`
	Limits   Limits   `mapstructure:",squash"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string `mapstructure:"VERITY_ADDR"`
	Env            string `mapstructure:"APP_ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES"`
	// Store selects the verification record backend: memory, redis or postgres.
	Store string `mapstructure:"RECORD_STORE"`
	// PIIHashKey keys the digest used instead of raw tax IDs in logs and audit.
	PIIHashKey string `mapstructure:"PII_HASH_KEY"`
}

// Redis configures the shared Redis client.
type Redis struct {
	URL          string        `mapstructure:"REDIS_URL"`
	PoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`
}

// Postgres configures the database used for records and audit events.
type Postgres struct {
	DSN             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

// Registry holds external registry endpoints and credentials. Empty
// credentials disable a registry; that is reported as "not configured".
type Registry struct {
	Timeout  time.Duration `mapstructure:"REGISTRY_TIMEOUT"`
	CacheTTL time.Duration `mapstructure:"REGISTRY_CACHE_TTL"`

	SudregBaseURL      string `mapstructure:"SUDREG_BASE_URL"`
	SudregClientID     string `mapstructure:"SUDREG_CLIENT_ID"`
	SudregClientSecret string `mapstructure:"SUDREG_CLIENT_SECRET"`

	TradePortalURL string `mapstructure:"TRADE_PORTAL_URL"`
	TradeEnabled   bool   `mapstructure:"TRADE_REGISTRY_ENABLED"`

	ChamberLawyersURL    string `mapstructure:"CHAMBER_LAWYERS_URL"`
	ChamberDoctorsURL    string `mapstructure:"CHAMBER_DOCTORS_URL"`
	ChamberArchitectsURL string `mapstructure:"CHAMBER_ARCHITECTS_URL"`

	VIESURL string `mapstructure:"VIES_URL"`
}

// OCR selects the text-extraction engine.
type OCR struct {
	// Engine is "textract" or "placeholder".
	Engine    string `mapstructure:"OCR_ENGINE"`
	AWSRegion string `mapstructure:"AWS_REGION"`
}

// Notify selects where verification notifications are published.
type Notify struct {
	// Kind is "kafka", "amqp" or "log".
	Kind         string `mapstructure:"NOTIFY_KIND"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"NOTIFY_KAFKA_TOPIC"`
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"NOTIFY_AMQP_EXCHANGE"`
	BufferSize   int    `mapstructure:"NOTIFY_BUFFER_SIZE"`
}

// Auth configures bearer token validation.
type Auth struct {
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
}

// Limits configures per-user request quotas. Zero disables a class.
type Limits struct {
	Enabled          bool `mapstructure:"RATE_LIMIT_ENABLED"`
	DocumentsPerHour int  `mapstructure:"RATE_LIMIT_DOCUMENTS_PER_HOUR"`
	ProfilePerHour   int  `mapstructure:"RATE_LIMIT_PROFILE_PER_HOUR"`
	ReadsPerMinute   int  `mapstructure:"RATE_LIMIT_READS_PER_MINUTE"`
	AdminPerMinute   int  `mapstructure:"RATE_LIMIT_ADMIN_PER_MINUTE"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine (CI, containers)

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("VERITY_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("RECORD_STORE", "memory")
	v.SetDefault("PII_HASH_KEY", "dev-pii-key-change-in-production")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)

	v.SetDefault("REGISTRY_TIMEOUT", 10*time.Second)
	v.SetDefault("REGISTRY_CACHE_TTL", RegistryCacheTTL)
	v.SetDefault("SUDREG_BASE_URL", "https://sudreg-data.gov.hr")
	v.SetDefault("SUDREG_CLIENT_ID", "")
	v.SetDefault("SUDREG_CLIENT_SECRET", "")
	v.SetDefault("TRADE_PORTAL_URL", "https://pretrazivac-obrta.gov.hr/pretraga")
	v.SetDefault("TRADE_REGISTRY_ENABLED", true)
	v.SetDefault("CHAMBER_LAWYERS_URL", "https://api.hok.hr/v1/lawyers")
	v.SetDefault("CHAMBER_DOCTORS_URL", "https://api.hlz.hr/v1/doctors")
	v.SetDefault("CHAMBER_ARCHITECTS_URL", "https://api.hka.hr/v1/architects")
	v.SetDefault("VIES_URL", "https://ec.europa.eu/taxation_customs/vies/services/checkVatService")

	v.SetDefault("OCR_ENGINE", "placeholder")
	v.SetDefault("AWS_REGION", "eu-central-1")

	v.SetDefault("NOTIFY_KIND", "log")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "verification-events")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("NOTIFY_AMQP_EXCHANGE", "verification")
	v.SetDefault("NOTIFY_BUFFER_SIZE", 256)

	v.SetDefault("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")
	v.SetDefault("JWT_ISSUER", "uslugar")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_DOCUMENTS_PER_HOUR", 20)
	v.SetDefault("RATE_LIMIT_PROFILE_PER_HOUR", 60)
	v.SetDefault("RATE_LIMIT_READS_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_ADMIN_PER_MINUTE", 120)
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: VERITY_ADDR must be set")
	}
	switch c.Server.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("config: RECORD_STORE=redis requires REDIS_URL")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("config: RECORD_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown RECORD_STORE %q", c.Server.Store)
	}
	switch c.Notify.Kind {
	case "log":
	case "kafka":
		if len(c.Notify.KafkaBrokerList()) == 0 {
			return errors.New("config: NOTIFY_KIND=kafka requires KAFKA_BROKERS")
		}
	case "amqp":
		if c.Notify.AMQPURL == "" {
			return errors.New("config: NOTIFY_KIND=amqp requires AMQP_URL")
		}
	default:
		return fmt.Errorf("config: unknown NOTIFY_KIND %q", c.Notify.Kind)
	}
	if c.OCR.Engine != "textract" && c.OCR.Engine != "placeholder" {
		return fmt.Errorf("config: unknown OCR_ENGINE %q", c.OCR.Engine)
	}
	if c.Server.Env == "production" && strings.HasPrefix(c.Auth.JWTSigningKey, "dev-") {
		return errors.New("config: JWT_SIGNING_KEY must be overridden in production")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool { return c.Server.Env == "production" }

// SudregConfigured reports whether company registry credentials are present.
func (r Registry) SudregConfigured() bool {
	return r.SudregClientID != "" && r.SudregClientSecret != ""
}

// KafkaBrokerList returns broker addresses from the comma-separated config.
func (n Notify) KafkaBrokerList() []string {
	if n.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(n.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
