package config_test

import (
	"testing"
	"time"

	"plantmart/internal/config"
	"plantmart/internal/stores"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]any{"JWT_SECRET": "secret"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, config.DriverMemory, cfg.GatewayDriver)
	assert.Equal(t, config.IdentityLocal, cfg.IdentityDriver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 720*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 60*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, "http://127.0.0.1:5000/api/diagnose", cfg.ClassifierURL)
	assert.Equal(t, stores.CompensateNone, cfg.SignUpCompensation)
	assert.True(t, cfg.SeedProducts)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing jwt secret", map[string]any{}},
		{"unknown gateway", map[string]any{"JWT_SECRET": "s", "GATEWAY_DRIVER": "mongodb"}},
		{"sqlite without dsn", map[string]any{"JWT_SECRET": "s", "GATEWAY_DRIVER": "sqlite"}},
		{"supabase without key", map[string]any{"GATEWAY_DRIVER": "supabase", "IDENTITY_DRIVER": "supabase", "SUPABASE_URL": "https://x.supabase.co"}},
		{"supabase gateway with local identity", map[string]any{"JWT_SECRET": "s", "GATEWAY_DRIVER": "supabase", "SUPABASE_URL": "https://x.supabase.co", "SUPABASE_KEY": "k"}},
		{"unknown identity", map[string]any{"IDENTITY_DRIVER": "ldap"}},
		{"unknown compensation", map[string]any{"JWT_SECRET": "s", "SIGNUP_COMPENSATION": "retry"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.FromViper(newViper(tt.values))
			assert.Error(t, err)
		})
	}
}

func TestFromViper_Supabase(t *testing.T) {
	cfg, err := config.FromViper(newViper(map[string]any{
		"GATEWAY_DRIVER":      "supabase",
		"IDENTITY_DRIVER":     "supabase",
		"SUPABASE_URL":        "https://x.supabase.co",
		"SUPABASE_KEY":        "service-role-key",
		"SIGNUP_COMPENSATION": "delete_identity",
		"TOKEN_TTL":           "2h",
	}))
	require.NoError(t, err)
	assert.Equal(t, stores.CompensateDeleteIdentity, cfg.SignUpCompensation)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("SEED_PRODUCTS", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.False(t, cfg.SeedProducts)
}
