package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fathima-sithara/moms/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndDerived(t *testing.T) {
	path := writeConfig(t, `
mongo:
  uri: mongodb://localhost:27017
jwt:
  secret: test-secret
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "moms.app", cfg.App.CredentialDomain)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 15*time.Minute, cfg.LoginLockout)
	assert.Equal(t, int64(5*1024*1024), cfg.S3.MaxUploadBytes)
	require.NotNil(t, cfg.Location)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
app:
  port: 9000
mongo:
  uri: mongodb://file:27017
jwt:
  secret: file-secret
`)
	t.Setenv("MOMS_MONGO_URI", "mongodb://env:27017")
	t.Setenv("MOMS_APP_PORT", "7000")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://env:27017", cfg.Mongo.URI)
	assert.Equal(t, 7000, cfg.App.Port)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing mongo uri", "jwt:\n  secret: s\n"},
		{"missing jwt secret", "mongo:\n  uri: mongodb://x\n"},
		{"bad timezone", "mongo:\n  uri: mongodb://x\njwt:\n  secret: s\napp:\n  timezone: Mars/Base\n"},
		{"short passwords", "mongo:\n  uri: mongodb://x\njwt:\n  secret: s\nsecurity:\n  min_password_length: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
