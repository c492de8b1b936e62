package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/glocktrack/glocktrack/internal/config"
)

func main() {
	fmt.Println("Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("Note: .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration OK")
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.GeminiAPIKey))
	fmt.Printf("  - OCR Model: %s\n", cfg.OCRModel)
	fmt.Printf("  - HTTP Addr: %s\n", cfg.HTTPAddr)
	fmt.Printf("  - DB Path: %s\n", cfg.DB.Path)
	if cfg.Redis.Host != "" {
		fmt.Printf("  - Redis Notifier: %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	} else {
		fmt.Println("  - Redis Notifier: disabled (in-process)")
	}
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
