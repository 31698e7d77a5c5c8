package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	Escalation   EscalationConfig
	AutoClose    AutoCloseConfig
	Notification NotificationConfig
	Routing      RoutingConfig
	Identity     IdentityConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DatabaseURL string // DATABASE_URL (full DSN) - takes precedence over individual vars
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
}

// DSN returns the go-sql-driver DSN. clientFoundRows makes UPDATE report
// matched rows instead of changed rows; the no-row-means-not-found checks
// and the notification read-marking queries depend on that.
func (d DatabaseConfig) DSN() string {
	dsn := d.DatabaseURL
	if dsn == "" {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", d.User, d.Password, d.Host, d.Port, d.DBName)
	}
	return ensureDSNParams(dsn,
		"parseTime=true",
		"charset=utf8mb4",
		"loc=UTC",
		"clientFoundRows=true",
	)
}

// ensureDSNParams appends required query parameters unless already present.
func ensureDSNParams(dsn string, params ...string) string {
	for _, p := range params {
		key := p[:strings.Index(p, "=")+1]
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}
	return dsn
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
}

// EscalationConfig holds SLA breach thresholds and the sweep schedule.
type EscalationConfig struct {
	L1ThresholdDays int           // ESCALATION_L1_THRESHOLD_DAYS: days overdue before the department head level
	L2ThresholdDays int           // ESCALATION_L2_THRESHOLD_DAYS: days overdue before the commissioner level
	SweepInterval   time.Duration // ESCALATION_SWEEP_INTERVAL: how often the scheduler scans the active set
}

// AutoCloseConfig holds the citizen-silence closure settings.
type AutoCloseConfig struct {
	SilenceWindow time.Duration // AUTO_CLOSE_TIMEOUT: how long a resolved complaint waits for the citizen
	SweepInterval time.Duration // AUTO_CLOSE_SWEEP_INTERVAL: how often the sweeper runs
}

// NotificationConfig holds the dispatch pipeline settings.
type NotificationConfig struct {
	QueueSize         int
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	DrainTimeout      time.Duration
}

// RoutingConfig holds automatic classification routing settings.
type RoutingConfig struct {
	ConfidenceThreshold float64 // ROUTING_CONFIDENCE_THRESHOLD: below this, intake falls back to manual routing
}

// IdentityConfig holds settings for validating tokens minted by the
// identity service. This system never issues tokens.
type IdentityConfig struct {
	JWTSecret string
}

// LoadConfig loads configuration from environment variables.
// Supports DATABASE_URL (full DSN) or individual DB_* variables (for local dev).
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getEnv("DB_HOST", "127.0.0.1"),
			Port:        getEnv("DB_PORT", "3306"),
			User:        getEnv("DB_USER", "root"),
			Password:    os.Getenv("DB_PASSWORD"),
			DBName:      getEnv("DB_NAME", "samadhan"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("PORT", getEnv("SERVER_PORT", "8080")),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Escalation: EscalationConfig{
			L1ThresholdDays: getEnvInt("ESCALATION_L1_THRESHOLD_DAYS", 1),
			L2ThresholdDays: getEnvInt("ESCALATION_L2_THRESHOLD_DAYS", 3),
			SweepInterval:   getEnvDuration("ESCALATION_SWEEP_INTERVAL", 6*time.Hour),
		},
		AutoClose: AutoCloseConfig{
			SilenceWindow: getEnvDuration("AUTO_CLOSE_TIMEOUT", 72*time.Hour),
			SweepInterval: getEnvDuration("AUTO_CLOSE_SWEEP_INTERVAL", 6*time.Hour),
		},
		Notification: NotificationConfig{
			QueueSize:         getEnvInt("NOTIFICATION_QUEUE_SIZE", 256),
			MaxRetries:        getEnvInt("NOTIFICATION_MAX_RETRIES", 3),
			InitialRetryDelay: getEnvDuration("NOTIFICATION_INITIAL_RETRY_DELAY", 500*time.Millisecond),
			MaxRetryDelay:     getEnvDuration("NOTIFICATION_MAX_RETRY_DELAY", 10*time.Second),
			DrainTimeout:      getEnvDuration("NOTIFICATION_DRAIN_TIMEOUT", 5*time.Second),
		},
		Routing: RoutingConfig{
			ConfidenceThreshold: getEnvFloat("ROUTING_CONFIDENCE_THRESHOLD", 0.7),
		},
		Identity: IdentityConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable ("90m", "6h") or
// returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
