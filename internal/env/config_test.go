package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, CacheBackendPostgres, cfg.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 1100*time.Millisecond, cfg.Siconfi.RateInterval)
	assert.Equal(t, 1000, cfg.Siconfi.PageLimit)
	assert.Equal(t, 50, cfg.Siconfi.MaxPages)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CACHE_BACKEND=redis\nSICONFI_MAX_PAGES=3\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("CACHE_BACKEND")
		os.Unsetenv("SICONFI_MAX_PAGES")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, 3, cfg.Siconfi.MaxPages)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestGetDurationFallback(t *testing.T) {
	t.Setenv("SOME_DURATION", "not-a-duration")
	assert.Equal(t, time.Minute, GetDuration("SOME_DURATION", time.Minute))
}
