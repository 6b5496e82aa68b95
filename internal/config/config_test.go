package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultRPCEndpoint, cfg.Solana.RPCEndpoint)
	assert.Equal(t, 5*time.Second, cfg.Metadata.FetchTimeout)
	assert.Equal(t, 8, cfg.Metadata.Workers)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, 100, cfg.HTTP.MaxSelection)
	assert.Equal(t, "saved_nfts", cfg.Store.Collection)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
solana:
  rpc_endpoint: https://rpc.example.com
  commitment: confirmed
metadata:
  fetch_timeout: 2s
  workers: 3
store:
  backend: firestore
  project_id: picks-prod
  credentials_file: /secrets/sa.json
http:
  addr: ":9000"
  allowed_origins: ["https://picks.example.com"]
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.Solana.RPCEndpoint)
	assert.Equal(t, "confirmed", cfg.Solana.Commitment)
	assert.Equal(t, 2*time.Second, cfg.Metadata.FetchTimeout)
	assert.Equal(t, 3, cfg.Metadata.Workers)
	assert.Equal(t, BackendFirestore, cfg.Store.Backend)
	assert.Equal(t, "picks-prod", cfg.Store.ProjectID)
	assert.Equal(t, "/secrets/sa.json", cfg.Store.CredentialsFile)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://picks.example.com"}, cfg.HTTP.AllowedOrigins)
	// Unset fields keep defaults.
	assert.Equal(t, "saved_nfts", cfg.Store.Collection)
	assert.Equal(t, 100, cfg.HTTP.MaxSelection)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "bad.yaml", "solana: [unterminated"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"SOLANA_RPC_ENDPOINT":            "https://rpc.env",
		"STORE_BACKEND":                  "kafka",
		"KAFKA_BROKERS":                  "k1:9092, k2:9092,",
		"GOOGLE_APPLICATION_CREDENTIALS": "/creds.json",
		"METADATA_WORKERS":               "2",
		"METADATA_FETCH_TIMEOUT":         "750ms",
		"LOG_LEVEL":                      "debug",
		"HTTP_ADDR":                      "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.env", cfg.Solana.RPCEndpoint)
	assert.Equal(t, BackendKafka, cfg.Store.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Store.KafkaBrokers)
	assert.Equal(t, "/creds.json", cfg.Store.CredentialsFile)
	assert.Equal(t, 2, cfg.Metadata.Workers)
	assert.Equal(t, 750*time.Millisecond, cfg.Metadata.FetchTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, DefaultAddr, cfg.HTTP.Addr)
}

func TestApplyEnv_Invalid(t *testing.T) {
	assert.ErrorIs(t, Default().ApplyEnv(envMap(map[string]string{"METADATA_WORKERS": "zero"})), ErrInvalidConfig)
	assert.ErrorIs(t, Default().ApplyEnv(envMap(map[string]string{"METADATA_FETCH_TIMEOUT": "-1s"})), ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, false},
		{"firestore without project", func(c *Config) { c.Store.Backend = BackendFirestore }, false},
		{"firestore with project", func(c *Config) { c.Store.Backend = BackendFirestore; c.Store.ProjectID = "p" }, true},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = BackendPostgres }, false},
		{"clickhouse without dsn", func(c *Config) { c.Store.Backend = BackendClickhouse }, false},
		{"kafka without brokers", func(c *Config) { c.Store.Backend = BackendKafka }, false},
		{"sqlite default path", func(c *Config) { c.Store.Backend = BackendSqlite }, true},
		{"bad rpc endpoint", func(c *Config) { c.Solana.RPCEndpoint = "not a url" }, false},
		{"bad commitment", func(c *Config) { c.Solana.Commitment = "max" }, false},
		{"bad persist url", func(c *Config) { c.HTTP.PersistURL = "::" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
solana:
  rpc_endpoint: https://rpc.file
http:
  addr: ":7000"
log:
  level: warn
`)

	cfg, err := Load("server", []string{"-config", path, "-addr", ":7100", "-workers", "4"}, envMap(map[string]string{
		"SOLANA_RPC_ENDPOINT": "https://rpc.env",
		"HTTP_ADDR":           ":7050",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.env", cfg.Solana.RPCEndpoint) // env over file
	assert.Equal(t, ":7100", cfg.HTTP.Addr)                    // flag over env
	assert.Equal(t, "warn", cfg.Log.Level)                     // file over default
	assert.Equal(t, 4, cfg.Metadata.Workers)
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load("server", []string{"-store", "postgres"}, envMap(nil))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", `
# comment
NFT_PICKER_TEST_A=from-file
NFT_PICKER_TEST_B="quoted"
NFT_PICKER_TEST_C=keep
not-a-pair
`)
	t.Setenv("NFT_PICKER_TEST_C", "from-env")

	LoadEnvFile(path)
	t.Cleanup(func() {
		os.Unsetenv("NFT_PICKER_TEST_A")
		os.Unsetenv("NFT_PICKER_TEST_B")
	})

	assert.Equal(t, "from-file", os.Getenv("NFT_PICKER_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("NFT_PICKER_TEST_B"))
	assert.Equal(t, "from-env", os.Getenv("NFT_PICKER_TEST_C"))
}

func TestPersistTarget(t *testing.T) {
	tests := []struct {
		cfg  HTTPConfig
		want string
	}{
		{HTTPConfig{Addr: ":8080"}, "http://127.0.0.1:8080/persist"},
		{HTTPConfig{Addr: "0.0.0.0:9000"}, "http://127.0.0.1:9000/persist"},
		{HTTPConfig{Addr: "[::]:9000"}, "http://127.0.0.1:9000/persist"},
		{HTTPConfig{Addr: "10.0.0.5:8080"}, "http://10.0.0.5:8080/persist"},
		{HTTPConfig{Addr: ":8080", PersistURL: "https://picker.example/.netlify/functions/persist"}, "https://picker.example/.netlify/functions/persist"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.PersistTarget(), "addr %q", tt.cfg.Addr)
	}
}

func TestLoadArgs_Positional(t *testing.T) {
	cfg, rest, err := LoadArgs("resolve", []string{"-workers", "2", "OwnerKey"}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Metadata.Workers)
	assert.Equal(t, []string{"OwnerKey"}, rest)
}
