package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddress string

	// JWT configuration
	JWTSecret string

	// Mail relay config (external delivery service)
	MailRelayAddress string
	MailRelaySecret  string

	// Background workers for notification dispatch
	WorkerPoolSize int

	FrontendAddress string
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateRandomSecret(32)
		log.Println("Generated random JWT secret")
	}

	AppConfig = Config{
		ServerPort:       getEnv("PORT", "8080"),
		Environment:      getEnv("ENV", "development"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "alpha_qms"),
		RedisAddress:     getEnv("REDIS_ADDRESS", "localhost:6379"),
		JWTSecret:        jwtSecret,
		MailRelayAddress: getEnv("MAIL_RELAY_ADDRESS", "http://localhost:8787"),
		MailRelaySecret:  getEnv("MAIL_RELAY_SECRET", "alpha-qms-relay-secret"),
		WorkerPoolSize:   getEnvInt("WORKER_POOL_SIZE", 4),
		FrontendAddress:  getEnv("FRONTEND_ADDRESS", "https://qms.example.com"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// generateRandomSecret generates a random secret of the specified length
func generateRandomSecret(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	secret := make([]byte, length)
	for i := range secret {
		secret[i] = charset[int(time.Now().UnixNano())%len(charset)]
	}
	return string(secret)
}
