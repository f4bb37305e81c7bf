package config

import (
	"encoding/base64"
	"fmt"
	"os"
)

type Config struct {
	Env        string
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	// MessageKey enables at-rest encryption of message text when set.
	// Decoded from MESSAGE_KEY (base64, 32 bytes).
	MessageKey []byte
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:        getEnv("APP_ENV", "development"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "shikkha"),
		DBPassword: getEnv("DB_PASSWORD", "shikkha_dev_password"),
		DBName:     getEnv("DB_NAME", "shikkha"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
	}

	if keyB64 := os.Getenv("MESSAGE_KEY"); keyB64 != "" {
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("MESSAGE_KEY is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("MESSAGE_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.MessageKey = key
	}

	// No silent insecure defaults outside development.
	if cfg.Env == "production" {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if cfg.MessageKey == nil {
			return nil, fmt.Errorf("MESSAGE_KEY is required in production")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

func (c *Config) EncryptionEnabled() bool {
	return c.MessageKey != nil
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
