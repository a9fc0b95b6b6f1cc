package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	JWTSecret         string
	MongoURI          string
	DBName            string
	DirectoryDSN      string // Postgres DSN for the HR directory
	SkipAuth          bool
	Environment       string
	AppId             string
	SchedulerInterval string // cron spec for the SLA sweep, e.g. "@every 1m"
	DecisionRetries   int    // bounded retries on optimistic-lock conflicts
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:            getEnv("DB_NAME", "go-approvals"),
		DirectoryDSN:      getEnv("DIRECTORY_DSN", "postgres://localhost:5432/hr_directory?sslmode=disable"),
		SkipAuth:          getEnv("SKIP_AUTH", "false") == "true",
		Environment:       getEnv("ENVIRONMENT", "development"),
		AppId:             getEnv("APP_ID", "go-approvals"),
		SchedulerInterval: getEnv("SCHEDULER_INTERVAL", "@every 1m"),
		DecisionRetries:   getEnvInt("DECISION_RETRIES", 3),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
