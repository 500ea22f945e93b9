package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
discord:
  token: test-token
  guild_id: "123"
  manager_user_id: "456"
overseerr:
  base_url: http://localhost:5055
  api_key: secret
policy:
  sheet_url: https://example.com/sheet.csv
  default_profile: HD-1080p
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Discord.Token)
	assert.Equal(t, "456", cfg.Discord.ManagerUserID)
	assert.Equal(t, "http://localhost:5055", cfg.Overseerr.BaseURL)
	assert.Equal(t, "HD-1080p", cfg.Policy.DefaultProfile)

	// File overrides one default, the rest stay.
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/overseerr", cfg.Server.WebhookPath)
	assert.Equal(t, "0 * * * *", cfg.Policy.RefreshCron)
	assert.Equal(t, 0x5865F2, cfg.Discord.EmbedColor)
	assert.Equal(t, "request", cfg.Discord.Command)
	assert.Equal(t, 30, cfg.Overseerr.Timeout)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing discord token",
			content: "overseerr:\n  base_url: http://localhost:5055\n  api_key: secret\n",
			wantErr: "discord.token is required",
		},
		{
			name:    "missing base url",
			content: "discord:\n  token: t\noverseerr:\n  api_key: secret\n",
			wantErr: "overseerr.base_url is required",
		},
		{
			name:    "missing api key",
			content: "discord:\n  token: t\noverseerr:\n  base_url: http://localhost:5055\n",
			wantErr: "overseerr.api_key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
discord:
  token: file-token
overseerr:
  base_url: http://localhost:5055
  api_key: secret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CINEQUEST_DISCORD_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Discord.Token)
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8383}
	assert.Equal(t, "127.0.0.1:8383", cfg.Address())
}
