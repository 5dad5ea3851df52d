// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"plantmart/internal/stores"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Gateway drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// Identity drivers.
const (
	IdentityLocal    = "local"
	IdentitySupabase = "supabase"
)

// Config is the process configuration.
type Config struct {
	AppPort string

	GatewayDriver string
	DatabaseDSN   string
	SupabaseURL   string
	SupabaseKey   string

	IdentityDriver string
	JWTSecret      string
	TokenTTL       time.Duration
	RefreshTTL     time.Duration

	ClassifierURL     string
	ClassifierTimeout time.Duration

	RabbitMQURL string

	SignUpCompensation stores.CompensationPolicy
	SeedProducts       bool
	LogLevel           string
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("GATEWAY_DRIVER", DriverMemory)
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_KEY", "")
	v.SetDefault("IDENTITY_DRIVER", IdentityLocal)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("REFRESH_TTL", "720h")
	v.SetDefault("CLASSIFIER_URL", "http://127.0.0.1:5000/api/diagnose")
	v.SetDefault("CLASSIFIER_TIMEOUT", "60s")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("SIGNUP_COMPENSATION", string(stores.CompensateNone))
	v.SetDefault("SEED_PRODUCTS", true)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and checks a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	policy, err := stores.ParseCompensationPolicy(v.GetString("SIGNUP_COMPENSATION"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		GatewayDriver:      v.GetString("GATEWAY_DRIVER"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		SupabaseURL:        v.GetString("SUPABASE_URL"),
		SupabaseKey:        v.GetString("SUPABASE_KEY"),
		IdentityDriver:     v.GetString("IDENTITY_DRIVER"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		RefreshTTL:         v.GetDuration("REFRESH_TTL"),
		ClassifierURL:      v.GetString("CLASSIFIER_URL"),
		ClassifierTimeout:  v.GetDuration("CLASSIFIER_TIMEOUT"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		SignUpCompensation: policy,
		SeedProducts:       v.GetBool("SEED_PRODUCTS"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver names and the settings each driver needs.
func (c *Config) Validate() error {
	switch c.GatewayDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the %s gateway driver", c.GatewayDriver)
		}
	case DriverSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase gateway driver")
		}
	default:
		return fmt.Errorf("unknown GATEWAY_DRIVER %q", c.GatewayDriver)
	}

	switch c.IdentityDriver {
	case IdentityLocal:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the local identity driver")
		}
		if c.GatewayDriver == DriverSupabase {
			return fmt.Errorf("the supabase gateway requires the supabase identity driver")
		}
	case IdentitySupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase identity driver")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_DRIVER %q", c.IdentityDriver)
	}
	return nil
}
