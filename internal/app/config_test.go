package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDLINK_API_URL", "https://api.medlink.test/ ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.medlink.test", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, "medlink_session", cfg.SessionCookie)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresAPIURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDLINK_API_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsNonPositiveRateLimit(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDLINK_API_URL", "http://localhost:8000")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsShortBoardIdleTTL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDLINK_API_URL", "http://localhost:8000")

	for _, ttl := range []string{"0s", "1ns", "-5m"} {
		t.Setenv("BOARD_IDLE_TTL", ttl)
		_, err := LoadConfig()
		assert.Error(t, err, ttl)
	}

	t.Setenv("BOARD_IDLE_TTL", "2m")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.BoardIdleTTL)
}
