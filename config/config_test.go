package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://test@localhost:5432/foodcourt_test")
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("PRICE_SOURCE", "")
	t.Setenv("STRICT_STATUS_TRANSITIONS", "")
	t.Setenv("GATEWAY_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, PriceSourceClient, cfg.PriceSource)
	assert.False(t, cfg.StrictStatusTransitions)
	assert.False(t, cfg.UsesCatalogPrices())
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Same(t, cfg, GetConfig(), "Load should publish the loaded config")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://test@localhost:5432/foodcourt_test")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("PRICE_SOURCE", "CATALOG")
	t.Setenv("STRICT_STATUS_TRANSITIONS", "true")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("WEBHOOK_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.True(t, cfg.UsesCatalogPrices())
	assert.True(t, cfg.StrictStatusTransitions)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 10*time.Second, cfg.WebhookTimeout, "invalid durations fall back to the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing database url",
			cfg:     Config{PriceSource: PriceSourceClient},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown price source",
			cfg:     Config{DatabaseURL: "x", PriceSource: "menu"},
			wantErr: "PRICE_SOURCE",
		},
		{
			name:    "production without stripe key",
			cfg:     Config{DatabaseURL: "x", PriceSource: PriceSourceClient, GoEnv: "production"},
			wantErr: "STRIPE_SECRET_KEY",
		},
		{
			name:    "production without webhook secret",
			cfg:     Config{DatabaseURL: "x", PriceSource: PriceSourceClient, GoEnv: "production", StripeSecretKey: "sk_live"},
			wantErr: "STRIPE_WEBHOOK_SECRET",
		},
		{
			name: "valid development config",
			cfg:  Config{DatabaseURL: "x", PriceSource: PriceSourceCatalog, GoEnv: "development"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvironmentPredicates(t *testing.T) {
	assert.True(t, (&Config{GoEnv: "production"}).IsProduction())
	assert.True(t, (&Config{GoEnv: "test"}).IsTest())
	assert.True(t, (&Config{GoEnv: "development"}).IsDevelopment())
	assert.False(t, (&Config{GoEnv: "test"}).IsProduction())
}
