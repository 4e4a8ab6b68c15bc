package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Missed sweep window policies
const (
	MissedWindowSkip    = "skip"
	MissedWindowCatchUp = "catch-up"
)

// User store backends for the preference filter
const (
	UserStoreMongo    = "mongo"
	UserStorePostgres = "postgres"
)

type Config struct {
	Port               string
	Env                string
	MongoURI           string
	MongoDatabase      string
	UserStore          string
	PostgresConnStr    string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SweepInterval      time.Duration
	SweepInitialDelay  time.Duration
	MissedWindowPolicy string
	MaxCatchUp         time.Duration
	FanoutTimeout      time.Duration
	FanoutQueueSize    int
	FanoutWorkers      int
	BodyMaxLength      int

	// EnvFileLoaded reports whether a .env file was found
	EnvFileLoaded bool
}

// Load reads the configuration from the environment, loading .env first when
// one exists
func Load() *Config {
	envFileLoaded := godotenv.Load() == nil

	return &Config{
		EnvFileLoaded:      envFileLoaded,
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "bulletin"),
		UserStore:          getEnv("USER_STORE", UserStoreMongo),
		PostgresConnStr:    getEnv("POSTGRES_CONN_STR", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepInitialDelay:  getEnvAsDuration("SWEEP_INITIAL_DELAY", 10*time.Second),
		MissedWindowPolicy: getEnv("MISSED_WINDOW_POLICY", MissedWindowSkip),
		MaxCatchUp:         getEnvAsDuration("MAX_CATCH_UP", time.Hour),
		FanoutTimeout:      getEnvAsDuration("FANOUT_TIMEOUT", 10*time.Second),
		FanoutQueueSize:    getEnvAsInt("FANOUT_QUEUE_SIZE", 1024),
		FanoutWorkers:      getEnvAsInt("FANOUT_WORKERS", 4),
		BodyMaxLength:      getEnvAsInt("BODY_MAX_LENGTH", 160),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
