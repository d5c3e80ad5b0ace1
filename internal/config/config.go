package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported document store backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMinIO    = "minio"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// URL, when set, is used as-is and the individual fields are ignored.
type DatabaseConfig struct {
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	AutoMigrate        bool
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI               string
	Database          string
	Collection        string
	MaxPoolSize       uint64
	ConnectTimeoutSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	UseSSL      bool
	ReadWorkers int
}

// RedisConfig holds the optional read-through cache settings.
// An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTLSec   int
}

// TracingConfig controls the OpenTelemetry tracer provider.
type TracingConfig struct {
	Disabled    bool
	ServiceName string
	Protocol    string // grpc or http/protobuf
	Sampler     string
	SamplerArg  string
}

// AppConfig is the centralized configuration struct for the application.
// Values come from defaults, an optional config file (CONFIG_FILE) and
// environment variables, in increasing order of precedence.
type AppConfig struct {
	Env            string
	Port           string
	LogLevel       string
	BodyLimitBytes int
	CORSOrigins    string
	StoreBackend   string
	Database       DatabaseConfig
	Mongo          MongoConfig
	MinIO          MinIOConfig
	Redis          RedisConfig
	Tracing        TracingConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BODY_LIMIT_BYTES", 50*1024*1024)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STORE_BACKEND", BackendPostgres)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SEC", 300)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "textdocs")
	v.SetDefault("MONGO_COLLECTION", "files")
	v.SetDefault("MONGO_MAX_POOL_SIZE", 50)
	v.SetDefault("MONGO_CONNECT_TIMEOUT_SEC", 10)

	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_READ_WORKERS", 8)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TTL_SEC", 300)

	v.SetDefault("OTEL_SDK_DISABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "textdocs")
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_TRACES_SAMPLER", "parentbased_traceidratio")
	v.SetDefault("OTEL_TRACES_SAMPLER_ARG", "1.0")
}

// Load reads configuration from defaults, CONFIG_FILE (if set) and the environment.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &AppConfig{
		Env:            v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		BodyLimitBytes: v.GetInt("BODY_LIMIT_BYTES"),
		CORSOrigins:    v.GetString("CORS_ORIGINS"),
		StoreBackend:   strings.ToLower(v.GetString("STORE_BACKEND")),
		Database: DatabaseConfig{
			URL:                v.GetString("DATABASE_URL"),
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetString("DB_PORT"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			Name:               v.GetString("DB_NAME"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetimeSec: v.GetInt("DB_CONN_MAX_LIFETIME_SEC"),
			AutoMigrate:        v.GetBool("DB_AUTO_MIGRATE"),
		},
		Mongo: MongoConfig{
			URI:               v.GetString("MONGO_URI"),
			Database:          v.GetString("MONGO_DATABASE"),
			Collection:        v.GetString("MONGO_COLLECTION"),
			MaxPoolSize:       v.GetUint64("MONGO_MAX_POOL_SIZE"),
			ConnectTimeoutSec: v.GetInt("MONGO_CONNECT_TIMEOUT_SEC"),
		},
		MinIO: MinIOConfig{
			Endpoint:    v.GetString("MINIO_ENDPOINT"),
			AccessKey:   v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:   v.GetString("MINIO_SECRET_KEY"),
			Bucket:      v.GetString("MINIO_BUCKET"),
			UseSSL:      v.GetBool("MINIO_USE_SSL"),
			ReadWorkers: v.GetInt("MINIO_READ_WORKERS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTLSec:   v.GetInt("REDIS_TTL_SEC"),
		},
		Tracing: TracingConfig{
			Disabled:    v.GetBool("OTEL_SDK_DISABLED"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Protocol:    v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL"),
			Sampler:     v.GetString("OTEL_TRACES_SAMPLER"),
			SamplerArg:  v.GetString("OTEL_TRACES_SAMPLER_ARG"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *AppConfig) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendMongo, BackendMinIO:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.BodyLimitBytes <= 0 {
		return fmt.Errorf("BODY_LIMIT_BYTES must be positive, got %d", c.BodyLimitBytes)
	}
	return nil
}

// DSN returns the pgx connection string for c.
func (c DatabaseConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" || c.User == "" || c.Name == "" {
		return "", fmt.Errorf("DATABASE_URL or DB_HOST, DB_USER and DB_NAME are required")
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + port,
		Path:   c.Name,
	}
	if c.Password == "" {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// ConnMaxLifetime is ConnMaxLifetimeSec as a duration.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSec) * time.Second
}
