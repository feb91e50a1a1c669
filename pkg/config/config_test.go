package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseConfigDefaults(t *testing.T) {
	cfg := NewBaseConfig("snapchat_marketing", "source")

	assert.Equal(t, "snapchat_marketing", cfg.Name)
	assert.Equal(t, "source", cfg.Type)
	assert.Equal(t, 100, cfg.Performance.PageSize)
	assert.Equal(t, 3, cfg.Reliability.RetryAttempts)
	assert.NotNil(t, cfg.Security.Credentials)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := NewBaseConfig("", "source")
	assert.EqualError(t, cfg.Validate(), "name is required")

	cfg = NewBaseConfig("freshchat", "")
	assert.EqualError(t, cfg.Validate(), "type is required")

	cfg = NewBaseConfig("freshchat", "source")
	cfg.Performance.BatchSize = 0
	assert.EqualError(t, cfg.Validate(), "batch_size must be positive")
}

func TestCredential(t *testing.T) {
	cfg := NewBaseConfig("freshchat", "source")
	cfg.Security.Credentials["api_key"] = "t3st"

	assert.Equal(t, "t3st", cfg.Security.Credential("api_key"))
	assert.Equal(t, "", cfg.Security.Credential("missing"))

	var empty SecurityConfig
	assert.Equal(t, "", empty.Credential("api_key"))
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("TEST_FRESHCHAT_API_KEY", "s3cret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
name: freshchat
type: source
security:
  credentials:
    api_key: ${TEST_FRESHCHAT_API_KEY}
    region: Europe
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewBaseConfig("", "source")
	require.NoError(t, Load(path, cfg))

	assert.Equal(t, "freshchat", cfg.Name)
	assert.Equal(t, "s3cret", cfg.Security.Credential("api_key"))
	assert.Equal(t, "Europe", cfg.Security.Credential("region"))
}

func TestLoadUnsetEnvVarBecomesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "name: freshchat\ntype: source\nsecurity:\n  credentials:\n    api_key: ${TEST_DOES_NOT_EXIST_12345}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := NewBaseConfig("", "source")
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "", cfg.Security.Credential("api_key"))
}

func TestLoadMissingFile(t *testing.T) {
	cfg := NewBaseConfig("", "source")
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	state := map[string]map[string]string{
		"adaccounts": {"updated_at": "2021-11-08T00:00:00Z"},
	}
	require.NoError(t, Save(path, state))

	loaded := map[string]map[string]string{}
	require.NoError(t, Load(path, &loaded))
	assert.Equal(t, state, loaded)
}
