package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unidatahq/udc/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, 10, cfg.Data.MaxResults)
	require.Equal(t, 10, cfg.Data.SummaryThreshold)
	require.Equal(t, 50, cfg.Data.MaxPageSize)
	require.Equal(t, 60, cfg.RateLimit.Requests)
	require.Equal(t, time.Minute, cfg.RateLimit.Window.Duration())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "udc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
data:
  max_results: 25
assistant:
  openai_model: gpt-4o
cache:
  data_ttl: 45s
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, 25, cfg.Data.MaxResults)
	require.Equal(t, "gpt-4o", cfg.Assistant.OpenAIModel)
	require.Equal(t, 45*time.Second, cfg.Cache.DataTTL.Duration())
	// Untouched fields keep their defaults.
	require.Equal(t, 10, cfg.Data.SummaryThreshold)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "udc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [not: a: mapping"), 0o644))
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("UDC_HTTP_ADDR", ":7070")
	t.Setenv("UDC_MAX_RESULTS", "15")
	t.Setenv("UDC_REQUIRE_API_KEY", "true")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTP.Addr)
	require.Equal(t, 15, cfg.Data.MaxResults)
	require.True(t, cfg.HTTP.RequireAPIKey)
	require.Equal(t, "sk-env", cfg.Assistant.OpenAIKey)
}
