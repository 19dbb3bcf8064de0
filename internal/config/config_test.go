package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftd/mailbridge-mcp/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAILBRIDGE_OWNER_ID", "owner-1")
	t.Setenv("ACCOUNT_STORE_URL", "http://store.local")
	t.Setenv("OAUTH_GOOGLE_CLIENT_ID", "g-id")
	t.Setenv("OAUTH_GOOGLE_CLIENT_SECRET", "g-sec")
	t.Setenv("OAUTH_MICROSOFT_CLIENT_ID", "m-id")
	t.Setenv("OAUTH_MICROSOFT_CLIENT_SECRET", "m-sec")
	t.Setenv("LLM_API_KEY", "llm-key")
}

func TestFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_MODEL", "my-model")
	t.Setenv("LLM_BASE_URL", "http://llm.local/v1")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "owner-1", cfg.OwnerID)
	assert.Equal(t, "http://store.local", cfg.StoreURL)
	assert.Equal(t, "g-id", cfg.Google.ClientID)
	assert.Equal(t, "m-sec", cfg.Microsoft.ClientSecret)
	assert.Equal(t, "my-model", cfg.LLM.Model)
	assert.Equal(t, "http://llm.local/v1", cfg.LLM.BaseURL)
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
}

func TestFromEnvMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAILBRIDGE_OWNER_ID", "")

	_, err := config.FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAILBRIDGE_OWNER_ID")
}

func TestFromEnvMissingProviderCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OAUTH_MICROSOFT_CLIENT_SECRET", "")

	_, err := config.FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAUTH_MICROSOFT_CLIENT_SECRET")
}
