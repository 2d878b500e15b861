package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds process configuration loaded from the environment.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// OperatingTimezone is the calendar timezone used to derive business
	// dates and settlement cutoffs. It is not the server's wall clock.
	OperatingTimezone string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// Module provides the environment configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSettlementDefaultsHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "bancanet"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		OperatingTimezone: getenv("OPERATING_TIMEZONE", "America/Santo_Domingo"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "bancanet"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, raw, fallback)
		return fallback
	}
	return value
}
