package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Wheel  WheelConfig
	Auth   AuthConfig
}

type ServerConfig struct {
	Port string
}

type DBConfig struct {
	Path string
}

type WheelConfig struct {
	Segments        int // number of visual segments on the wheel
	AllocMaxRetries int // selection retries after losing a stock race
}

type AuthConfig struct {
	MockVerificationMode bool // log codes instead of sending them
	OTPExpiryMinutes     int
}

// Load returns application configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", "prizewheel.db"),
		},
		Wheel: WheelConfig{
			Segments:        getEnvInt("WHEEL_SEGMENTS", 12),
			AllocMaxRetries: getEnvInt("ALLOC_MAX_RETRIES", 3),
		},
		Auth: AuthConfig{
			MockVerificationMode: getEnvBool("MOCK_VERIFICATION_MODE", true),
			OTPExpiryMinutes:     getEnvInt("OTP_EXPIRY_MINUTES", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}
