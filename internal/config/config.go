package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/subosito/gotenv"
)

type Config struct {
	MongoDBURI      string
	MongoDBDatabase string
	ServerPort      string
	WSPort          string
	JWTSecret       string

	// RecencyWindow is how stale a bus's last position may be before the
	// bus is classified inactive.
	RecencyWindow time.Duration

	// LivenessCheckInterval is the cadence of the time-driven re-check.
	// A bus that stops reporting flips to inactive within one interval.
	LivenessCheckInterval time.Duration
}

func LoadConfig() *Config {
	// Optional .env for local development; env vars win either way.
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	config := &Config{
		MongoDBURI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBDatabase:       getEnv("MONGODB_DATABASE", "fleet"),
		ServerPort:            getEnv("SERVER_PORT", "9000"),
		WSPort:                getEnv("WS_PORT", "9001"),
		JWTSecret:             getEnv("JWT_SECRET", "dev-secret-change-me"),
		RecencyWindow:         getDurationEnv("RECENCY_WINDOW", 120*time.Second),
		LivenessCheckInterval: getDurationEnv("LIVENESS_CHECK_INTERVAL", 30*time.Second),
	}

	if config.MongoDBURI == "" {
		panic("MONGODB_URI is required")
	}
	if config.MongoDBDatabase == "" {
		panic("MONGODB_DATABASE is required")
	}
	if config.RecencyWindow <= 0 {
		panic("RECENCY_WINDOW must be positive")
	}
	if config.LivenessCheckInterval <= 0 {
		panic("LIVENESS_CHECK_INTERVAL must be positive")
	}

	return config
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s (%q), using default %s", key, value, fallback)
		return fallback
	}
	return d
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%s", c.ServerPort)
}

func (c *Config) GetWSAddress() string {
	return fmt.Sprintf(":%s", c.WSPort)
}
