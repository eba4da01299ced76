package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.json")

	_, err := Load(path)
	require.Error(t, err)
	// A template was written for the operator to edit.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadToleratesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		// tuned down for the test
		"serverWorkerNum": 2,
		"user": {"passwordCheck": "^[a-f0-9]{64}$", "heartBeatTime": 5}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.ServerWorkerNum)
	// Unset fields keep their defaults.
	assert.Equal(t, 500, cfg.Safety.MaxMsgLength)
}

func TestPasswordRegex(t *testing.T) {
	require.NoError(t, Set(Default()))

	sha256Hex := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	assert.True(t, PasswordRegex().MatchString(sha256Hex))
	assert.False(t, PasswordRegex().MatchString("plaintext-password"))
	assert.False(t, PasswordRegex().MatchString(sha256Hex[:63]))
	assert.False(t, PasswordRegex().MatchString(sha256Hex+"0"))
}

func TestSetRejectsBadPattern(t *testing.T) {
	cfg := Default()
	cfg.User.PasswordCheck = "["
	assert.Error(t, Set(cfg))
}
