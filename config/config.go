package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// This function will Load the ENVIRONMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is not set")

type EnvironmentVariable struct {
	GO_ENV string `mapstructure:"GO_ENV"`
	PORT   int    `mapstructure:"PORT"`
	// Database
	DB_DRIVER    string `mapstructure:"DB_DRIVER"` // postgres or sqlite
	DB_USER_NAME string `mapstructure:"DB_USER_NAME"`
	DB_PASSWORD  string `mapstructure:"DB_PASSWORD"`
	DB_NAME      string `mapstructure:"DB_NAME"`
	DB_HOST      string `mapstructure:"DB_HOST"`
	DB_PORT      string `mapstructure:"DB_PORT"`
	DB_SSL_MODE  string `mapstructure:"DB_SSL_MODE"`
	DB_PATH      string `mapstructure:"DB_PATH"`
	// JWT Configuration
	JWT_SECRET string `mapstructure:"JWT_SECRET"`
	JWT_ISSUER string `mapstructure:"JWT_ISSUER"`
	// Redis Configuration
	REDIS_URL string `mapstructure:"REDIS_URL"`
	// Kafka Configuration
	KAFKA_BROKER   string `mapstructure:"KAFKA_BROKER"`
	KAFKA_TOPIC    string `mapstructure:"KAFKA_TOPIC"`
	KAFKA_USERNAME string `mapstructure:"KAFKA_USERNAME"`
	KAFKA_PASSWORD string `mapstructure:"KAFKA_PASSWORD"`
	// HTTP
	ALLOWED_ORIGINS     string `mapstructure:"ALLOWED_ORIGINS"`
	RATE_LIMIT_REQUESTS int    `mapstructure:"RATE_LIMIT_REQUESTS"`
	// Institute requests
	REQUEST_TIMEOUT   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	CACHE_TTL         time.Duration `mapstructure:"CACHE_TTL"`
	STALE_REQUEST_AGE time.Duration `mapstructure:"STALE_REQUEST_AGE"`
	CRON_ENABLED      bool          `mapstructure:"CRON_ENABLED"`
}

var defaults = map[string]interface{}{
	"GO_ENV":              "development",
	"PORT":                8080,
	"DB_DRIVER":           "postgres",
	"DB_USER_NAME":        "",
	"DB_PASSWORD":         "",
	"DB_NAME":             "",
	"DB_HOST":             "localhost",
	"DB_PORT":             "5432",
	"DB_SSL_MODE":         "disable",
	"DB_PATH":             "student-records.db",
	"JWT_SECRET":          "",
	"JWT_ISSUER":          "student-records-api",
	"REDIS_URL":           "",
	"KAFKA_BROKER":        "",
	"KAFKA_TOPIC":         "institute-requests",
	"KAFKA_USERNAME":      "",
	"KAFKA_PASSWORD":      "",
	"ALLOWED_ORIGINS":     "http://localhost:3000,http://localhost:5173",
	"RATE_LIMIT_REQUESTS": 100,
	"REQUEST_TIMEOUT":     "5s",
	"CACHE_TTL":           "5m",
	"STALE_REQUEST_AGE":   "72h",
	"CRON_ENABLED":        true,
}

func Get() (*EnvironmentVariable, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var envVariables EnvironmentVariable
	if err := v.Unmarshal(&envVariables); err != nil {
		return nil, err
	}

	return &envVariables, nil
}

// Validate reports settings the server cannot start without.
func (e *EnvironmentVariable) Validate() error {
	if e.JWT_SECRET == "" {
		return ErrMissingJWTSecret
	}
	if e.DB_DRIVER != "postgres" && e.DB_DRIVER != "sqlite" {
		return errors.New("DB_DRIVER must be either postgres or sqlite")
	}
	return nil
}

func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}
