package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port        int    `json:"port"`
	Host        string `json:"host"`
	Environment string `json:"environment"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DatabaseURL string `json:"database_url"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`
	DBPath      string `json:"db_path"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret         string `json:"jwt_secret"`
	TokenTTLHours     int    `json:"token_ttl_hours"`
	OAuthClientID     string `json:"oauth_client_id"`
	OAuthClientSecret string `json:"oauth_client_secret"`
	AuthRateLimit     int    `json:"auth_rate_limit"`

	// Media configuration
	MediaBackend string `json:"media_backend"`
	MediaRoot    string `json:"media_root"`
	MediaURL     string `json:"media_url"`
	S3Endpoint   string `json:"s3_endpoint"`
	S3Region     string `json:"s3_region"`
	S3Bucket     string `json:"s3_bucket"`
	S3AccessKey  string `json:"s3_access_key"`
	S3SecretKey  string `json:"s3_secret_key"`

	// Reference data cache size (tags and ingredients)
	ReferenceCacheSize int `json:"reference_cache_size"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Environment: %s, DBDriver: %s, DatabaseURL: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], DBPath: %s, LogLevel: %s, JWTSecret: [REDACTED], OAuthClientID: %s, OAuthClientSecret: [REDACTED], MediaBackend: %s, MediaRoot: %s, S3Bucket: %s, S3SecretKey: [REDACTED]}",
		c.Port, c.Host, c.Environment, c.DBDriver, maskDatabaseURL(c.DatabaseURL), c.DBHost, c.DBName, c.DBUser, c.DBPath, c.LogLevel, c.OAuthClientID, c.MediaBackend, c.MediaRoot, c.S3Bucket)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It validates numeric values, the database driver, the media backend and DATABASE_URL when set
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	ttl, err := strconv.Atoi(GetEnvWithDefault("TOKEN_TTL_HOURS", "24"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: must be a positive integer")
	}

	driver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite"))
	switch driver {
	case "sqlite", "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s (supported: postgres, sqlite)", driver)
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	backend := strings.ToLower(GetEnvWithDefault("MEDIA_BACKEND", "local"))
	if backend != "local" && backend != "s3" {
		return nil, fmt.Errorf("unsupported MEDIA_BACKEND: %s (supported: local, s3)", backend)
	}

	config := &Config{
		Port:               port,
		Host:               GetEnvWithDefault("APP_HOST", "localhost"),
		Environment:        GetEnvWithDefault("APP_ENV", "development"),
		DBDriver:           driver,
		DatabaseURL:        dbURL,
		DBHost:             GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:             GetEnvWithDefault("DB_PORT", "5432"),
		DBName:             GetEnvWithDefault("DB_NAME", "foodgram"),
		DBUser:             GetEnvWithDefault("DB_USER", "foodgram"),
		DBPassword:         GetEnvWithDefault("DB_PASSWORD", "foodgram"),
		DBSSLMode:          GetEnvWithDefault("DB_SSLMODE", "disable"),
		DBPath:             GetEnvWithDefault("DB_PATH", "foodgram.sqlite"),
		LogLevel:           GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:          GetEnvWithDefault("JWT_SECRET", "secret"),
		TokenTTLHours:      ttl,
		OAuthClientID:      GetEnvWithDefault("OAUTH_CLIENT_ID", "foodgram-web"),
		OAuthClientSecret:  GetEnvWithDefault("OAUTH_CLIENT_SECRET", "foodgram-web-secret"),
		AuthRateLimit:      GetEnvAsType("AUTH_RATE_LIMIT", 20),
		MediaBackend:       backend,
		MediaRoot:          GetEnvWithDefault("MEDIA_ROOT", "media"),
		MediaURL:           GetEnvWithDefault("MEDIA_URL", "/media"),
		S3Endpoint:         GetEnvWithDefault("S3_ENDPOINT", ""),
		S3Region:           GetEnvWithDefault("S3_REGION", "us-east-1"),
		S3Bucket:           GetEnvWithDefault("S3_BUCKET", ""),
		S3AccessKey:        GetEnvWithDefault("S3_ACCESS_KEY", ""),
		S3SecretKey:        GetEnvWithDefault("S3_SECRET_KEY", ""),
		ReferenceCacheSize: GetEnvAsType("REFERENCE_CACHE_SIZE", 1024),
	}

	if config.MediaBackend == "s3" && config.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when MEDIA_BACKEND=s3")
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}

// DatabaseConfig maps the DB_* settings onto the database package configuration
func (c *Config) DatabaseConfig() database.DatabaseConfig {
	return database.DatabaseConfig{
		Driver:   c.DBDriver,
		URL:      c.DatabaseURL,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
		SSLMode:  c.DBSSLMode,
		Path:     c.DBPath,
	}
}

// TokenTTL is the access token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}
