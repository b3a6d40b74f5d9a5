// Package config collects the server's environment configuration in one
// place. All settings have defaults; the database, Redis and token signing
// are enabled only when their variables are set.
package config

import "os"

type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// LogLevel is a logrus level name.
	LogLevel string
	// DatabaseURL enables round persistence when non-empty.
	DatabaseURL string
	// RedisAddr enables action history when non-empty.
	RedisAddr     string
	RedisPassword string
	// JWTSecret enables guest tokens when non-empty.
	JWTSecret string
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Addr:          getenv("CARDS_ADDR", ":1999"),
		LogLevel:      getenv("CARDS_LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("CARDS_DATABASE_URL"),
		RedisAddr:     os.Getenv("CARDS_REDIS_ADDR"),
		RedisPassword: os.Getenv("CARDS_REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("CARDS_JWT_SECRET"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
