// Package config provides centralized default values for the SafeHarbor
// crisis engine.
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Configuration
	DBDriver                 string // "sqlite3" or "libsql"
	SQLitePath               string
	LibsqlURL                string
	LibsqlAuthToken          string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Performance Configuration
	SlowOperationThreshold time.Duration

	// Auth Configuration
	JWTSecret           string
	ServiceuserPassHash string // bcrypt hash for service token issuance
	TokenTTL            time.Duration

	// Pager Configuration
	PagerOnCallAddress string
	PagerFromAddress   string
	PagerFromName      string
	PagerTimeout       time.Duration

	// Alert Configuration
	EscalationAlertTTL time.Duration
	FollowUpAlertTTL   time.Duration

	// Cache Configuration
	UserCacheTTL    time.Duration
	CleanupInterval time.Duration

	// Alert Stream Configuration
	StreamWriteTimeout      time.Duration
	StreamHeartbeatInterval time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database Configuration
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	SQLitePath = getEnvString("SQLITE_PATH", "safeharbor.db")
	LibsqlURL = getEnvString("LIBSQL_URL", "")
	LibsqlAuthToken = getEnvString("LIBSQL_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 250*time.Millisecond)

	// Performance Configuration
	SlowOperationThreshold = getEnvDuration("SLOW_OPERATION_THRESHOLD", 500*time.Millisecond)

	// Auth Configuration
	JWTSecret = getEnvString("JWT_SECRET", "")
	ServiceuserPassHash = getEnvString("SERVICE_PASSWORD_HASH", "")
	TokenTTL = getEnvDuration("TOKEN_TTL", 12*time.Hour)

	// Pager Configuration
	PagerOnCallAddress = getEnvString("PAGER_ONCALL_ADDRESS", "")
	PagerFromAddress = getEnvString("PAGER_FROM_ADDRESS", "pager@safeharbor.health")
	PagerFromName = getEnvString("PAGER_FROM_NAME", "SafeHarbor Crisis Engine")
	PagerTimeout = getEnvDuration("PAGER_TIMEOUT", 10*time.Second)

	// Alert Configuration
	EscalationAlertTTL = time.Duration(getEnvInt("ESCALATION_ALERT_TTL_HOURS", 24)) * time.Hour
	FollowUpAlertTTL = time.Duration(getEnvInt("FOLLOW_UP_ALERT_TTL_HOURS", 72)) * time.Hour

	// Cache Configuration
	UserCacheTTL = time.Duration(getEnvInt("USER_CACHE_TTL_HOURS", 24)) * time.Hour
	CleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute

	// Alert Stream Configuration
	StreamWriteTimeout = getEnvDuration("STREAM_WRITE_TIMEOUT", 10*time.Second)
	StreamHeartbeatInterval = getEnvDuration("STREAM_HEARTBEAT_INTERVAL", 30*time.Second)
}
