package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted in STORE_DRIVER
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Env      string
	Server   ServerConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Cache    CacheConfig
	Embed    EmbedConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// StoreConfig selects the review store backend
type StoreConfig struct {
	Driver string
}

// MongoConfig holds document store configuration
type MongoConfig struct {
	URI              string
	Database         string
	Collection       string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsDir   string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled bool
	URL     string
}

// CacheConfig holds caching configuration
type CacheConfig struct {
	Enabled        bool
	ReviewsListTTL time.Duration
	ReviewStatsTTL time.Duration
}

// EmbedConfig holds defaults for the embeddable widget routes
type EmbedConfig struct {
	DefaultWebsite string
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("STORE_DRIVER", DriverMongo)

	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGODB_DB", "reviews-db")
	v.SetDefault("MONGODB_COLLECTION", "reviews")
	v.SetDefault("MONGODB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("MONGODB_OPERATION_TIMEOUT", "5s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reviews")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "1m")
	v.SetDefault("DB_MIGRATIONS_DIR", "migrations")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_TIMEOUT", "1s")

	v.SetDefault("NATS_ENABLED", true)
	v.SetDefault("NATS_URL", "nats://localhost:4222")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL_REVIEWS_LIST", "120s")
	v.SetDefault("CACHE_TTL_REVIEW_STATS", "300s")

	v.SetDefault("EMBED_DEFAULT_WEBSITE", "ui-app.com")

	durations := map[string]time.Duration{}
	for _, key := range []string{
		"SERVER_READ_TIMEOUT",
		"SERVER_WRITE_TIMEOUT",
		"SERVER_SHUTDOWN_TIMEOUT",
		"MONGODB_CONNECT_TIMEOUT",
		"MONGODB_OPERATION_TIMEOUT",
		"DB_CONN_MAX_LIFETIME",
		"DB_CONN_MAX_IDLE_TIME",
		"REDIS_TIMEOUT",
		"CACHE_TTL_REVIEWS_LIST",
		"CACHE_TTL_REVIEW_STATS",
	} {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = d
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))
	switch driver {
	case DriverMongo:
		if v.GetString("MONGODB_URI") == "" {
			return nil, fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverPostgres, DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", driver)
	}

	allowedOrigins := strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env: v.GetString("ENV"),
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			ReadTimeout:     durations["SERVER_READ_TIMEOUT"],
			WriteTimeout:    durations["SERVER_WRITE_TIMEOUT"],
			ShutdownTimeout: durations["SERVER_SHUTDOWN_TIMEOUT"],
			AllowedOrigins:  allowedOrigins,
		},
		Store: StoreConfig{
			Driver: driver,
		},
		Mongo: MongoConfig{
			URI:              v.GetString("MONGODB_URI"),
			Database:         v.GetString("MONGODB_DB"),
			Collection:       v.GetString("MONGODB_COLLECTION"),
			ConnectTimeout:   durations["MONGODB_CONNECT_TIMEOUT"],
			OperationTimeout: durations["MONGODB_OPERATION_TIMEOUT"],
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: durations["DB_CONN_MAX_LIFETIME"],
			ConnMaxIdleTime: durations["DB_CONN_MAX_IDLE_TIME"],
			MigrationsDir:   v.GetString("DB_MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
			Timeout:  durations["REDIS_TIMEOUT"],
		},
		NATS: NATSConfig{
			Enabled: v.GetBool("NATS_ENABLED"),
			URL:     v.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			Enabled:        v.GetBool("CACHE_ENABLED"),
			ReviewsListTTL: durations["CACHE_TTL_REVIEWS_LIST"],
			ReviewStatsTTL: durations["CACHE_TTL_REVIEW_STATS"],
		},
		Embed: EmbedConfig{
			DefaultWebsite: v.GetString("EMBED_DEFAULT_WEBSITE"),
		},
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
