package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "GIN_MODE", "DB_MAX_OPEN_CONNS", "DB_CONN_MAX_LIFETIME", "UPSELL_CHECKOUT_ONLY",
		"UPSELL_FALLBACK_PRODUCT_HANDLES", "ANALYTICS_EVENT_LIMIT", "CLICKHOUSE_HOST")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.False(t, cfg.App.IsRelease())
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.False(t, cfg.Upsell.CheckoutOnly)
	assert.Empty(t, cfg.Upsell.FallbackProductHandles)
	assert.Equal(t, 500, cfg.Analytics.EventLimit)
	assert.False(t, cfg.ClickHouse.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("UPSELL_CHECKOUT_ONLY", "true")
	t.Setenv("UPSELL_FALLBACK_PRODUCT_HANDLES", "lions-mane,reishi")
	t.Setenv("ANALYTICS_EVENT_LIMIT", "100")
	t.Setenv("CLICKHOUSE_HOST", "clickhouse.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsRelease())
	assert.True(t, cfg.Upsell.CheckoutOnly)
	assert.Equal(t, []string{"lions-mane", "reishi"}, cfg.Upsell.FallbackProductHandles)
	assert.Equal(t, 100, cfg.Analytics.EventLimit)
	assert.True(t, cfg.ClickHouse.Enabled())
	assert.Equal(t, 9000, cfg.ClickHouse.NativePort)
}

func TestLoadRejectsNonPositiveEventLimit(t *testing.T) {
	t.Setenv("ANALYTICS_EVENT_LIMIT", "0")

	_, err := Load()
	assert.Error(t, err)
}

// unsetEnv clears keys for the duration of the test; t.Setenv registers the restore.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
