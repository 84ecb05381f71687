// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Catalog sources
const (
	CatalogSourceFile     = "file"
	CatalogSourceS3       = "s3"
	CatalogSourcePostgres = "postgres"
)

// Config holds all configuration values for the application.
type Config struct {
	// Application
	Stage    string
	LogLevel string
	Port     string

	// Catalog
	CatalogSource   string
	DataDir         string
	DefaultLanguage string

	// AWS
	AWSRegion       string
	S3Bucket        string
	S3CatalogPrefix string

	// Database
	DatabaseURLOverride string
	DBHost              string
	DBPort              int
	DBName              string
	DBUser              string
	DBPassword          string
	DBMaxConns          int

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// SES
	SESSenderEmail string

	// Eligibility policy
	CreditGrade      string
	DistinctionGrade string
	MeritFairBand    float64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Application
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8080"),

		// Catalog
		CatalogSource:   strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceFile)),
		DataDir:         getEnv("DATA_DIR", "./data"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),

		// AWS
		AWSRegion:       getEnv("AWS_REGION", "ap-southeast-1"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3CatalogPrefix: getEnv("S3_CATALOG_PREFIX", "catalog/"),

		// Database
		DatabaseURLOverride: getEnv("DATABASE_URL", ""),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnvInt("DB_PORT", 5432),
		DBName:              getEnv("DB_NAME", "course_eligibility"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBMaxConns:          getEnvInt("DB_MAX_CONNS", 0),

		// Cache
		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SECONDS", 900)) * time.Second,

		// SES
		SESSenderEmail: getEnv("SES_SENDER_EMAIL", ""),

		// Eligibility policy
		CreditGrade:      getEnv("CREDIT_GRADE", "C"),
		DistinctionGrade: getEnv("DISTINCTION_GRADE", "A-"),
		MeritFairBand:    getEnvFloat("MERIT_FAIR_BAND", 5.0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.CatalogSource {
	case CatalogSourceFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required when CATALOG_SOURCE=%s", c.CatalogSource)
		}
	case CatalogSourceS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when CATALOG_SOURCE=%s", c.CatalogSource)
		}
	case CatalogSourcePostgres:
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q: want %s, %s or %s",
			c.CatalogSource, CatalogSourceFile, CatalogSourceS3, CatalogSourcePostgres)
	}

	if c.MeritFairBand < 0 {
		return fmt.Errorf("MERIT_FAIR_BAND must not be negative, got %v", c.MeritFairBand)
	}
	if c.DBMaxConns < 0 {
		return fmt.Errorf("DB_MAX_CONNS must not be negative, got %d", c.DBMaxConns)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string.
// DATABASE_URL wins over the individual DB_* settings.
func (c *Config) DatabaseURL() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// DatabaseConfigured reports whether any database settings were supplied.
func (c *Config) DatabaseConfigured() bool {
	return c.DatabaseURLOverride != "" || os.Getenv("DB_HOST") != "" || c.CatalogSource == CatalogSourcePostgres
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as float64 or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
