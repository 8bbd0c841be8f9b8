package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load("")
	req.NoError(err)

	req.Equal("0.0.0.0", cfg.HTTP.Host)
	req.Equal(uint16(8080), cfg.HTTP.Port)
	req.Equal(10*time.Second, cfg.HTTP.ReadTimeout)
	req.Equal(30*time.Second, cfg.HTTP.WriteTimeout)
	req.Equal(5*time.Second, cfg.HTTP.ShutdownTimeout)
	req.Zero(cfg.HTTP.MaxBodyBytes)
	req.Equal([]string{"*"}, cfg.HTTP.AllowedOrigins)

	req.Equal("zap", cfg.Logger.Logger)
	req.Equal("info", cfg.Logger.Level)
	req.Equal("json", cfg.Logger.Encoding)

	req.False(cfg.HTTP.TrustProxyHeaders)

	req.False(cfg.RateLimiter.Enabled)
	req.Equal(10, cfg.RateLimiter.MaxRatePerSecond)
	req.Equal(20, cfg.RateLimiter.MaxBurst)
	req.Empty(cfg.RateLimiter.SourceHeaderKey)
	req.Equal("token_bucket", cfg.RateLimiter.Strategy)
	req.Equal(time.Second, cfg.RateLimiter.Window)

	req.False(cfg.Tracing.Enabled)
	req.Equal(1.0, cfg.Tracing.SampleRatio)

	req.True(cfg.Metrics.Enabled)
	req.Equal("/metrics", cfg.Metrics.Path)

	req.Equal("0.0.0.0:8080", cfg.Addr())
}

func TestLoad_File(t *testing.T) {
	req := require.New(t)

	path := writeFile(t, "config.yaml", `
http:
  host: 127.0.0.1
  port: 9090
  read_timeout: 3s
  max_body_bytes: 4096
logger:
  logger: zerolog
  level: warn
  encoding: console
rate_limiter:
  enabled: true
  max_burst: 5
`)

	cfg, err := Load(path)
	req.NoError(err)

	req.Equal("127.0.0.1", cfg.HTTP.Host)
	req.Equal(uint16(9090), cfg.HTTP.Port)
	req.Equal(3*time.Second, cfg.HTTP.ReadTimeout)
	req.Equal(int64(4096), cfg.HTTP.MaxBodyBytes)
	// untouched keys keep their defaults
	req.Equal(30*time.Second, cfg.HTTP.WriteTimeout)

	req.Equal("zerolog", cfg.Logger.Logger)
	req.Equal("warn", cfg.Logger.Level)
	req.Equal("console", cfg.Logger.Encoding)

	req.True(cfg.RateLimiter.Enabled)
	req.Equal(5, cfg.RateLimiter.MaxBurst)
	req.Equal(10, cfg.RateLimiter.MaxRatePerSecond)
}

func TestLoad_EnvOverrides(t *testing.T) {
	req := require.New(t)

	path := writeFile(t, "config.yaml", `
http:
  port: 9090
logger:
  level: warn
`)

	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("HTTP_MAX_BODY_BYTES", "1024")
	t.Setenv("LOGGER_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("HTTP_TRUST_PROXY_HEADERS", "true")
	t.Setenv("RATE_LIMIT_STRATEGY", "fixed_window")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318/v1/traces")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("SENTRY_DSN", "https://public@sentry.example.com/1")

	cfg, err := Load(path)
	req.NoError(err)

	req.Equal(uint16(7070), cfg.HTTP.Port)
	req.Equal(int64(1024), cfg.HTTP.MaxBodyBytes)
	req.Equal("debug", cfg.Logger.Level)
	req.True(cfg.HTTP.TrustProxyHeaders)
	req.True(cfg.RateLimiter.Enabled)
	req.Equal("fixed_window", cfg.RateLimiter.Strategy)
	req.True(cfg.Tracing.Enabled)
	req.Equal("http://collector:4318/v1/traces", cfg.Tracing.Endpoint)
	req.Equal("staging", cfg.Tracing.Environment)
	req.Equal("staging", cfg.Sentry.Environment)
	req.Equal("https://public@sentry.example.com/1", cfg.Sentry.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "Unknown logger backend",
			content: "logger:\n  logger: logrus\n",
		},
		{
			name:    "Malformed sentry dsn",
			content: "sentry:\n  dsn: not-a-url\n",
		},
		{
			name:    "Unknown rate limiter strategy",
			content: "rate_limiter:\n  strategy: leaky_bucket\n",
		},
		{
			name:    "Unknown level",
			content: "logger:\n  level: verbose\n",
		},
		{
			name:    "Negative body limit",
			content: "http:\n  max_body_bytes: -1\n",
		},
		{
			name:    "Sample ratio above one",
			content: "tracing:\n  sample_ratio: 1.5\n",
		},
		{
			name:    "Metrics path without leading slash",
			content: "metrics:\n  path: metrics\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			req.Error(err)
			req.ErrorContains(err, "invalid config")
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	req := require.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	req.Error(err)
	req.ErrorContains(err, "failed to load config file")
}

func TestDetermineConfigPath(t *testing.T) {
	req := require.New(t)

	req.Equal("/explicit.yaml", DetermineConfigPath("/explicit.yaml"))

	t.Setenv("DIETI_CONFIG", "/from/env.yaml")
	req.Equal("/from/env.yaml", DetermineConfigPath(""))
}

func TestLoadDotEnv(t *testing.T) {
	req := require.New(t)

	path := writeFile(t, ".env", "DIETI_DOTENV_VALUE=from-file\nDIETI_DOTENV_PRESET=from-file\n")
	t.Setenv("DIETI_DOTENV_PRESET", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("DIETI_DOTENV_VALUE") })

	req.NoError(LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	req.Equal("from-file", os.Getenv("DIETI_DOTENV_VALUE"))
	req.Equal("from-process", os.Getenv("DIETI_DOTENV_PRESET"))
}
