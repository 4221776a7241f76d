package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminSecretGeneratesPerBootSecret(t *testing.T) {
	first := &AppConfig{AppEnv: "development"}
	require.NoError(t, ensureAdminSecret(first))
	assert.Len(t, first.AdminSecret, 64)

	second := &AppConfig{AppEnv: "development", AdminSecret: "   "}
	require.NoError(t, ensureAdminSecret(second))
	assert.NotEqual(t, first.AdminSecret, second.AdminSecret)
}

func TestEnsureAdminSecretKeepsConfiguredValue(t *testing.T) {
	c := &AppConfig{AdminSecret: "0123456789abcdef-configured"}
	require.NoError(t, ensureAdminSecret(c))
	assert.Equal(t, "0123456789abcdef-configured", c.AdminSecret)
}

func TestValidateFillsAdminSecretOutsideProduction(t *testing.T) {
	c := &AppConfig{AppEnv: "development", DatabaseURL: "postgres://localhost/wave"}
	validate(c)
	assert.NotEmpty(t, c.AdminSecret)
}

func TestLoadReadsPublicClientKeys(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "server-side-id")
	t.Setenv("NEXT_PUBLIC_PAYPAL_CLIENT_ID", "browser-id")
	t.Setenv("NEXT_PUBLIC_SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role")
	t.Setenv("ADMIN_SECRET", "0123456789abcdef-test")
	t.Setenv("APP_ENV", "test")
	previous := current
	current = nil
	t.Cleanup(func() { current = previous })

	c := Load()
	assert.Equal(t, "browser-id", c.PayPalPublicClientID)
	assert.Equal(t, "server-side-id", c.PayPalClientID)
	assert.Equal(t, "anon-key", c.SupabaseAnonKey)
	assert.Equal(t, "service-role", c.SupabaseServiceRoleKey)
}
