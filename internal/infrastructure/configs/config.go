package configs

import (
	"fmt"
	"time"

	"github.com/dietiestates/backend/internal/infrastructure/env"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Logger      LoggerConfig      `koanf:"logger"`
	RateLimiter RateLimiterConfig `koanf:"rate_limiter"`
	Tracing     TracingConfig     `koanf:"tracing"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Sentry      SentryConfig      `koanf:"sentry"`
}

type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            uint16        `koanf:"port"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// MaxBodyBytes caps the accepted message size. Zero leaves it unbounded.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gte=0"`
	// TrustProxyHeaders rewrites the remote address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

type LoggerConfig struct {
	Logger   string `koanf:"logger" validate:"oneof=zap zerolog"`
	Level    string `koanf:"level" validate:"oneof=debug info warn error fatal"`
	Encoding string `koanf:"encoding" validate:"oneof=json console"`
	FilePath string `koanf:"file_path"`
}

type RateLimiterConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Strategy         string        `koanf:"strategy" validate:"oneof=token_bucket fixed_window"`
	MaxRatePerSecond int           `koanf:"max_rate_per_second" validate:"gte=0"`
	MaxBurst         int           `koanf:"max_burst" validate:"gte=0"`
	Window           time.Duration `koanf:"window" validate:"gte=0"`
	CacheTTL         time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	SourceHeaderKey  string        `koanf:"source_header_key"`
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint" validate:"required_if=Enabled true,omitempty,url"`
	Environment string  `koanf:"environment"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true,omitempty,startswith=/"`
}

type SentryConfig struct {
	DSN         string  `koanf:"dsn" validate:"omitempty,url"`
	Environment string  `koanf:"environment"`
	SampleRate  float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

// Load reads the YAML file at path (if any), then applies defaults and
// environment overrides. An empty path yields defaults plus env.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.idle_timeout", time.Minute)
	setDefault(k, "http.shutdown_timeout", 5*time.Second)
	setDefault(k, "http.max_body_bytes", 0)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.trust_proxy_headers", false)

	// Logger defaults
	setDefault(k, "logger.logger", "zap")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.file_path", "")

	// Rate limiter defaults
	setDefault(k, "rate_limiter.enabled", false)
	setDefault(k, "rate_limiter.strategy", "token_bucket")
	setDefault(k, "rate_limiter.window", time.Second)
	setDefault(k, "rate_limiter.max_rate_per_second", 10)
	setDefault(k, "rate_limiter.max_burst", 20)
	setDefault(k, "rate_limiter.cache_ttl", 5*time.Minute)
	setDefault(k, "rate_limiter.source_header_key", "")

	// Tracing defaults
	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")
	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.sample_ratio", 1.0)

	// Metrics defaults
	setDefault(k, "metrics.enabled", true)
	setDefault(k, "metrics.path", "/metrics")

	// Sentry defaults
	setDefault(k, "sentry.dsn", "")
	setDefault(k, "sentry.environment", "development")
	setDefault(k, "sentry.sample_rate", 1.0)
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if maxBody := env.GetInt("HTTP_MAX_BODY_BYTES", -1); maxBody >= 0 {
		k.Set("http.max_body_bytes", maxBody)
	}
	if timeout := env.GetDuration("HTTP_SHUTDOWN_TIMEOUT", 0); timeout > 0 {
		k.Set("http.shutdown_timeout", timeout)
	}
	k.Set("http.trust_proxy_headers", env.GetBool("HTTP_TRUST_PROXY_HEADERS", k.Bool("http.trust_proxy_headers")))

	// Logger config from env
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if encoding := env.GetString("LOGGER_ENCODING", ""); encoding != "" {
		k.Set("logger.encoding", encoding)
	}
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}

	// Rate limiter config from env
	k.Set("rate_limiter.enabled", env.GetBool("RATE_LIMIT_ENABLED", k.Bool("rate_limiter.enabled")))
	if strategy := env.GetString("RATE_LIMIT_STRATEGY", ""); strategy != "" {
		k.Set("rate_limiter.strategy", strategy)
	}
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rate_limiter.max_rate_per_second", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rate_limiter.max_burst", maxBurst)
	}

	// Tracing config from env
	k.Set("tracing.enabled", env.GetBool("TRACING_ENABLED", k.Bool("tracing.enabled")))
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
		k.Set("sentry.environment", environment)
	}

	// Metrics config from env
	k.Set("metrics.enabled", env.GetBool("METRICS_ENABLED", k.Bool("metrics.enabled")))

	// Sentry config from env
	if dsn := env.GetString("SENTRY_DSN", ""); dsn != "" {
		k.Set("sentry.dsn", dsn)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
