package config

import (
	"os"
	"strings"

	"github.com/glocktrack/glocktrack/internal/logger"
)

type Config struct {
	GeminiAPIKey string
	OCRModel     string
	HTTPAddr     string
	DB           DBConfig
	Redis        RedisConfig
	Logger       LoggerConfig
}

type DBConfig struct {
	Path string
}

// RedisConfig configures the optional Redis-backed change notifier.
// Left empty, the in-process notifier is used.
type RedisConfig struct {
	Host string
	Port string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	return &Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OCRModel:     getEnvOrDefault("OCR_MODEL", "gemini-1.5-flash"),
		HTTPAddr:     getEnvOrDefault("HTTP_ADDR", ":8080"),
		DB: DBConfig{
			Path: getEnvOrDefault("DB_PATH", "data/glocktrack.db"),
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "logs/app.log"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}, nil
}
