package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadEnvFile loads KEY=VALUE lines from path into the process environment.
// Existing variables are not overridden; a missing file is ignored.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SOLANA_RPC_ENDPOINT", &c.Solana.RPCEndpoint)
	str("SOLANA_COMMITMENT", &c.Solana.Commitment)
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_COLLECTION", &c.Store.Collection)
	str("FIRESTORE_PROJECT_ID", &c.Store.ProjectID)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.Store.CredentialsFile)
	str("POSTGRES_DSN", &c.Store.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Store.ClickhouseDSN)
	str("SQLITE_PATH", &c.Store.SqlitePath)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("PERSIST_URL", &c.HTTP.PersistURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Store.KafkaBrokers = splitList(v)
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.HTTP.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("METADATA_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: METADATA_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Metadata.Workers = n
	}
	if v, ok := lookup("METADATA_FETCH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: METADATA_FETCH_TIMEOUT=%q", ErrInvalidConfig, v)
		}
		c.Metadata.FetchTimeout = d
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
