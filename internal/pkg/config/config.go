package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port         string
	MetricsAddr  string
	PprofAddr    string
	ServiceName  string
	OTLPEndpoint string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// VerificationConfig holds the tunables of the scan pipeline.
type VerificationConfig struct {
	AutoMatchThreshold  float64
	SuggestThreshold    float64
	MaxCandidates       int
	DefaultRadiusMeters float64
	MinRadiusMeters     float64
	MaxRadiusMeters     float64
	MinImageLength      int
	MaxImageBytes       int
	PreviewLength       int
	MaxKeywords         int
	FreeDailyScans      int
	PremiumDailyScans   int
	OracleTimeout       time.Duration
	DBTimeout           time.Duration
	Timezone            string
	Location            *time.Location
}

type JWTConfig struct {
	SecretKey string
}

// MinioConfig is optional; an empty endpoint disables photo storage.
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// NATSConfig is optional; an empty URL disables visit events.
type NATSConfig struct {
	URL     string
	Subject string
}

type LogConfig struct {
	Level string
	JSON  bool
}

type Config struct {
	Server       ServerConfig
	Repositories RepositoriesConfig
	Gemini       GeminiConfig
	Verification VerificationConfig
	JWT          JWTConfig
	Minio        MinioConfig
	NATS         NATSConfig
	Log          LogConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8091")
	v.SetDefault("METRICS_ADDR", ":9092")
	v.SetDefault("PPROF_ADDR", ":6060")
	v.SetDefault("SERVICE_NAME", "loci-visits")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5454")
	v.SetDefault("POSTGRES_DB", "loci_visits")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_MAX_CONNS", 30)
	v.SetDefault("POSTGRES_MIN_CONNS", 5)

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_TEMPERATURE", 0.2)

	v.SetDefault("VERIFY_AUTO_MATCH_THRESHOLD", 0.85)
	v.SetDefault("VERIFY_SUGGEST_THRESHOLD", 0.6)
	v.SetDefault("VERIFY_MAX_CANDIDATES", 8)
	v.SetDefault("VERIFY_DEFAULT_RADIUS_METERS", 50000)
	v.SetDefault("VERIFY_MIN_RADIUS_METERS", 1000)
	v.SetDefault("VERIFY_MAX_RADIUS_METERS", 100000)
	v.SetDefault("VERIFY_MIN_IMAGE_LENGTH", 100)
	v.SetDefault("VERIFY_MAX_IMAGE_BYTES", 10<<20)
	v.SetDefault("VERIFY_PREVIEW_LENGTH", 500)
	v.SetDefault("VERIFY_MAX_KEYWORDS", 5)
	v.SetDefault("VERIFY_FREE_DAILY_SCANS", 5)
	v.SetDefault("VERIFY_PREMIUM_DAILY_SCANS", 50)
	v.SetDefault("VERIFY_ORACLE_TIMEOUT", "30s")
	v.SetDefault("VERIFY_DB_TIMEOUT", "5s")
	v.SetDefault("VERIFY_TIMEZONE", "UTC")

	v.SetDefault("JWT_SECRET_KEY", "")

	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "visit-photos")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_PUBLIC_BASE_URL", "")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT", "visits.recorded")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			MetricsAddr:  v.GetString("METRICS_ADDR"),
			PprofAddr:    v.GetString("PPROF_ADDR"),
			ServiceName:  v.GetString("SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     v.GetString("POSTGRES_HOST"),
				Port:     v.GetString("POSTGRES_PORT"),
				DB:       v.GetString("POSTGRES_DB"),
				Username: v.GetString("POSTGRES_USER"),
				Password: v.GetString("POSTGRES_PASSWORD"),
				SSLMode:  v.GetString("POSTGRES_SSLMODE"),
				MaxConns: v.GetInt32("POSTGRES_MAX_CONNS"),
				MinConns: v.GetInt32("POSTGRES_MIN_CONNS"),
			},
		},
		Gemini: GeminiConfig{
			APIKey:      v.GetString("GEMINI_API_KEY"),
			Model:       v.GetString("GEMINI_MODEL"),
			Temperature: float32(v.GetFloat64("GEMINI_TEMPERATURE")),
		},
		Verification: VerificationConfig{
			AutoMatchThreshold:  v.GetFloat64("VERIFY_AUTO_MATCH_THRESHOLD"),
			SuggestThreshold:    v.GetFloat64("VERIFY_SUGGEST_THRESHOLD"),
			MaxCandidates:       v.GetInt("VERIFY_MAX_CANDIDATES"),
			DefaultRadiusMeters: v.GetFloat64("VERIFY_DEFAULT_RADIUS_METERS"),
			MinRadiusMeters:     v.GetFloat64("VERIFY_MIN_RADIUS_METERS"),
			MaxRadiusMeters:     v.GetFloat64("VERIFY_MAX_RADIUS_METERS"),
			MinImageLength:      v.GetInt("VERIFY_MIN_IMAGE_LENGTH"),
			MaxImageBytes:       v.GetInt("VERIFY_MAX_IMAGE_BYTES"),
			PreviewLength:       v.GetInt("VERIFY_PREVIEW_LENGTH"),
			MaxKeywords:         v.GetInt("VERIFY_MAX_KEYWORDS"),
			FreeDailyScans:      v.GetInt("VERIFY_FREE_DAILY_SCANS"),
			PremiumDailyScans:   v.GetInt("VERIFY_PREMIUM_DAILY_SCANS"),
			OracleTimeout:       v.GetDuration("VERIFY_ORACLE_TIMEOUT"),
			DBTimeout:           v.GetDuration("VERIFY_DB_TIMEOUT"),
			Timezone:            v.GetString("VERIFY_TIMEZONE"),
		},
		JWT: JWTConfig{
			SecretKey: v.GetString("JWT_SECRET_KEY"),
		},
		Minio: MinioConfig{
			Endpoint:      v.GetString("MINIO_ENDPOINT"),
			AccessKey:     v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:     v.GetString("MINIO_SECRET_KEY"),
			Bucket:        v.GetString("MINIO_BUCKET"),
			UseSSL:        v.GetBool("MINIO_USE_SSL"),
			PublicBaseURL: v.GetString("MINIO_PUBLIC_BASE_URL"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_SUBJECT"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			JSON:  v.GetBool("LOG_JSON"),
		},
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if err := cfg.Verification.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks threshold ordering, radius bounds and quotas, and resolves the timezone.
func (c *VerificationConfig) Validate() error {
	if c.SuggestThreshold < 0 || c.AutoMatchThreshold > 1 {
		return fmt.Errorf("verification thresholds must be within [0,1], got suggest=%.2f auto=%.2f",
			c.SuggestThreshold, c.AutoMatchThreshold)
	}
	if c.AutoMatchThreshold <= c.SuggestThreshold {
		return fmt.Errorf("auto match threshold (%.2f) must be greater than suggest threshold (%.2f)",
			c.AutoMatchThreshold, c.SuggestThreshold)
	}
	if c.MinRadiusMeters <= 0 || c.MinRadiusMeters > c.MaxRadiusMeters {
		return fmt.Errorf("invalid radius bounds [%.0f, %.0f]", c.MinRadiusMeters, c.MaxRadiusMeters)
	}
	if c.DefaultRadiusMeters < c.MinRadiusMeters || c.DefaultRadiusMeters > c.MaxRadiusMeters {
		return fmt.Errorf("default radius %.0f outside [%.0f, %.0f]",
			c.DefaultRadiusMeters, c.MinRadiusMeters, c.MaxRadiusMeters)
	}
	if c.FreeDailyScans < 0 || c.PremiumDailyScans < 0 {
		return fmt.Errorf("daily scan quotas must not be negative")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max candidates must be positive, got %d", c.MaxCandidates)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}
