package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("APP_BASIC_AUTH", "admin:secret,ops:hunter2")
	t.Setenv("UPSTREAM_BASE_URL", "http://upstream:4600")
	t.Setenv("WS_RECONNECT_ATTEMPTS", "9")
	t.Setenv("MODAL_DISMISS_DELAY", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.App.Port)
	assert.True(t, cfg.App.Debug)
	assert.Equal(t, []string{"admin:secret", "ops:hunter2"}, cfg.App.BasicAuth)
	assert.Equal(t, "http://upstream:4600", cfg.Upstream.BaseURL)
	assert.Equal(t, 9, cfg.Feed.ReconnectAttempts)
	assert.Equal(t, 5*time.Second, cfg.UI.ModalDismissDelay)
	assert.Same(t, cfg, Global)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("WS_RECONNECT_ATTEMPTS", "")
	t.Setenv("WS_RECONNECT_DELAY", "")
	t.Setenv("MODAL_DISMISS_DELAY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "4500", cfg.App.Port)
	assert.Equal(t, 5, cfg.Feed.ReconnectAttempts)
	assert.Equal(t, 3*time.Second, cfg.Feed.ReconnectDelay)
	assert.Equal(t, 3*time.Second, cfg.UI.ModalDismissDelay)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestDurationKnobsAcceptMilliseconds(t *testing.T) {
	// Deployments historically set these as plain millisecond counts.
	t.Setenv("WS_RECONNECT_DELAY", "1500")
	t.Setenv("MODAL_DISMISS_DELAY", "not a duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Feed.ReconnectDelay)
	assert.Equal(t, 3*time.Second, cfg.UI.ModalDismissDelay, "unparseable values fall back to the default")
}
