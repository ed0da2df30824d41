package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmehdipour/qmail/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Locker.MaxPollAttempts)
	assert.Equal(t, 1000, cfg.Locker.PollIntervalMs)
	assert.Equal(t, 3000, cfg.Locker.CreateTimeoutMs)
	assert.Equal(t, "DY6-UYDM", cfg.Locker.FallbackKey)
	require.Len(t, cfg.Locker.Daemons, 1)
	assert.Equal(t, "http://localhost:8006", cfg.Locker.Daemons[0].BaseURL)
	assert.Equal(t, "redis", cfg.Serial.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Archiver.BatchWait)
	assert.Equal(t, "QMail Inbox", cfg.Mailbox.DefaultDescription)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locker:\n  max_poll_attempts: 5\nserial:\n  backend: mysql\n"), 0o600))

	t.Setenv("QMAIL_LOCKER_FALLBACK_KEY", "ENV-KEY1")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Locker.MaxPollAttempts)
	assert.Equal(t, "mysql", cfg.Serial.Backend)
	assert.Equal(t, "ENV-KEY1", cfg.Locker.FallbackKey)
	assert.Equal(t, 1000, cfg.Locker.PollIntervalMs, "untouched keys keep defaults")
}
