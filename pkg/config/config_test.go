package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 5, cfg.CrawlWorkers)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.CrawlInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 8*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "auto", cfg.Extractor)
	assert.Equal(t, []string{"t", "token"}, cfg.StreamParamList())
	assert.Empty(t, cfg.ProxyList())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CRAWL_WORKERS", "2")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("PROXIES", "http://p1:8000, http://p2:8000")
	t.Setenv("USER_AGENTS", "ua-one|ua-two")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CrawlWorkers)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"http://p1:8000", "http://p2:8000"}, cfg.ProxyList())
	assert.Equal(t, []string{"ua-one", "ua-two"}, cfg.UserAgentList())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_PORT=9090\nMAX_ATTEMPTS=4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 4, cfg.MaxAttempts)
}

func TestLoad_ImplicitDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "livecast.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livecast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: [unterminated\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
