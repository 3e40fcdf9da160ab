package perfz

import (
	"os"
	"strconv"
)

// Config holds monitor settings.
type Config struct {
	ServiceName string // Service label for exporters
	LogLevel    string // "debug", "info", "warning" or "error"
	Workers     int    // Async handler workers; zero runs async handlers on fresh goroutines
	QueueSize   int    // Async handler queue length
}

// DefaultQueueSize is used when workers are configured without a queue size.
const DefaultQueueSize = 1024

// ConfigFromEnv reads configuration from PERFZ_* environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		ServiceName: getEnv("PERFZ_SERVICE_NAME", "perfz"),
		LogLevel:    getEnv("PERFZ_LOG_LEVEL", "info"),
		Workers:     parseInt(getEnv("PERFZ_WORKERS", "0")),
		QueueSize:   parseInt(getEnv("PERFZ_QUEUE_SIZE", "0")),
	}
	if cfg.Workers > 0 && cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return cfg
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses integer from string, zero on failure.
func parseInt(s string) int {
	if value, err := strconv.Atoi(s); err == nil {
		return value
	}
	return 0
}
