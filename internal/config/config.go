package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Model     ModelConfig
	Registry  RegistryConfig
	Logger    LoggerConfig
	CORS      CORSConfig
	Tracing   TracingConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name    string
	Version string
	Debug   bool
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// ModelConfig selects where the model comes from. A non-empty Path switches
// the service to the embedded artifact directory; otherwise the registry is
// queried for Name at Stage.
type ModelConfig struct {
	Name     string
	Stage    string
	Path     string
	CacheDir string
}

type RegistryConfig struct {
	TrackingURI        string
	Timeout            time.Duration
	GCSCredentialsPath string
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
	File   string
}

type CORSConfig struct {
	AllowedOrigins string
}

type TracingConfig struct {
	Enabled          bool
	ServiceName      string
	ExporterEndpoint string
	SamplingRate     float64
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type CacheConfig struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("APP_NAME", "Card Approval API")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("DEBUG", false)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MLFLOW_TRACKING_URI", "http://127.0.0.1:5000")
	v.SetDefault("MODEL_NAME", "card_approval_model")
	v.SetDefault("MODEL_STAGE", "Production")
	v.SetDefault("MODEL_PATH", "")
	v.SetDefault("MODEL_CACHE_DIR", "/tmp/card-approval/artifacts")
	v.SetDefault("REGISTRY_TIMEOUT", "30s")
	v.SetDefault("REGISTRY_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("REGISTRY_BREAKER_OPEN_TIMEOUT", "30s")
	v.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("OTEL_ENABLED", true)
	v.SetDefault("OTEL_SERVICE_NAME", "card-approval-api")
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "")
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)
	v.SetDefault("DATABASE_ENABLED", false)
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_NAME", "card_approval")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 10)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("PREDICTION_CACHE_TTL", "10m")
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	// Env
	v.AutomaticEnv()

	samplingRate := v.GetFloat64("OTEL_SAMPLING_RATE")
	if samplingRate < 0 || samplingRate > 1 {
		return nil, fmt.Errorf("OTEL_SAMPLING_RATE must be within [0, 1], got %v", samplingRate)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("APP_NAME"),
			Version: v.GetString("APP_VERSION"),
			Debug:   v.GetBool("DEBUG"),
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: durationOr(v, "SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Model: ModelConfig{
			Name:     v.GetString("MODEL_NAME"),
			Stage:    v.GetString("MODEL_STAGE"),
			Path:     v.GetString("MODEL_PATH"),
			CacheDir: v.GetString("MODEL_CACHE_DIR"),
		},
		Registry: RegistryConfig{
			TrackingURI:        v.GetString("MLFLOW_TRACKING_URI"),
			Timeout:            durationOr(v, "REGISTRY_TIMEOUT", 30*time.Second),
			GCSCredentialsPath: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			BreakerMaxFailures: v.GetUint32("REGISTRY_BREAKER_MAX_FAILURES"),
			BreakerOpenTimeout: durationOr(v, "REGISTRY_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   v.GetString("LOG_FILE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetString("CORS_ORIGINS"),
		},
		Tracing: TracingConfig{
			Enabled:          v.GetBool("OTEL_ENABLED"),
			ServiceName:      v.GetString("OTEL_SERVICE_NAME"),
			ExporterEndpoint: v.GetString("OTEL_EXPORTER_ENDPOINT"),
			SamplingRate:     samplingRate,
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("DATABASE_ENABLED"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durationOr(v, "DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Cache: CacheConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			RedisURL: v.GetString("REDIS_URL"),
			TTL:      durationOr(v, "PREDICTION_CACHE_TTL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return cfg, nil
}

// UsesLocalModel reports whether artifacts are embedded on disk rather than
// fetched from the registry.
func (c *Config) UsesLocalModel() bool {
	return c.Model.Path != ""
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}
