// Package config loads process configuration from the environment.  Defaults
// suit local development; nothing here is secret-management, the JWT secret
// is expected to be injected by the deployment.
package config

import "os"

const (
	BackendMemory  = "memory"
	BackendSurreal = "surreal"
)

type Config struct {
	HTTPAddr            string
	JWTSecret           string
	PlaceholderPassword string

	StoreBackend string // BackendMemory or BackendSurreal

	SurrealURL  string
	SurrealNS   string
	SurrealDB   string
	SurrealUser string
	SurrealPass string
}

func Load() Config {
	return Config{
		HTTPAddr:            getenv("HTTP_ADDR", "localhost:8080"),
		JWTSecret:           getenv("JWT_SECRET", "dev-only-secret"),
		PlaceholderPassword: getenv("PLACEHOLDER_PASSWORD", "secret"),
		StoreBackend:        getenv("STORE_BACKEND", BackendMemory),
		SurrealURL:          getenv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealNS:           getenv("SURREALDB_NS", "library"),
		SurrealDB:           getenv("SURREALDB_DB", "library"),
		SurrealUser:         getenv("SURREALDB_USER", "root"),
		SurrealPass:         getenv("SURREALDB_PASS", "root"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
