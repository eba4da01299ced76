package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmail-project/dmail-backend/internal/config"
)

func setEmailConfig(t *testing.T, enable bool) {
	t.Helper()
	cfg := config.Default()
	cfg.Email.Enable = enable
	require.NoError(t, config.Set(cfg))
}

func TestEmailDisabledAlwaysPasses(t *testing.T) {
	setEmailConfig(t, false)
	codes := &EmailCodes{codes: map[string]issuedCode{}}

	require.NoError(t, codes.SendCode("a@example.com"))
	assert.True(t, codes.CheckAndConsume("a@example.com", 123456))
	assert.True(t, codes.CheckAndConsume("never@asked.com", 0))
}

func TestEmailCodeCheckAndConsume(t *testing.T) {
	setEmailConfig(t, true)
	codes := &EmailCodes{codes: map[string]issuedCode{
		"a@example.com": {code: 424242, issuedAt: time.Now()},
	}}

	assert.False(t, codes.CheckAndConsume("a@example.com", 111111))
	assert.True(t, codes.CheckAndConsume("a@example.com", 424242))
	// Consumed on first success.
	assert.False(t, codes.CheckAndConsume("a@example.com", 424242))
}

func TestEmailCodeExpires(t *testing.T) {
	setEmailConfig(t, true)
	stale := time.Now().Add(-time.Duration(config.Get().Email.ValidTimeSec+1) * time.Second)
	codes := &EmailCodes{codes: map[string]issuedCode{
		"a@example.com": {code: 424242, issuedAt: stale},
	}}

	assert.False(t, codes.CheckAndConsume("a@example.com", 424242))
}

func TestGenerateCodeStaysWithinDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := generateCode(6)
		assert.Less(t, code, uint32(1000000))
	}
	assert.Less(t, generateCode(4), uint32(10000))
}
