// Package config loads runtime configuration for the trading backend.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv hydrates the process environment from ./.env (and ../.env) without
// overriding variables already set. Missing files are not an error: the process
// may be configured entirely through its environment (container deployments).
func loadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		_ = godotenv.Load(path)
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return def
	}
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
