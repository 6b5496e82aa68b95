// Package config loads service configuration from a YAML file, the
// environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory     = "memory"
	BackendFirestore  = "firestore"
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
	BackendSqlite     = "sqlite"
	BackendKafka      = "kafka"
)

// Defaults.
const (
	DefaultRPCEndpoint     = "https://api.mainnet-beta.solana.com"
	DefaultRPCTimeout      = 30 * time.Second
	DefaultFetchTimeout    = 5 * time.Second
	DefaultWorkers         = 8
	DefaultMaxBodyBytes    = 1 << 20
	DefaultCollection      = "saved_nfts"
	DefaultMaxSelection    = 100
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultSqlitePath      = "data/saved_nfts.db"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level service configuration.
type Config struct {
	Solana   SolanaConfig   `yaml:"solana"`
	Metadata MetadataConfig `yaml:"metadata"`
	Store    StoreConfig    `yaml:"store"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// SolanaConfig controls the chain RPC client.
type SolanaConfig struct {
	RPCEndpoint string        `yaml:"rpc_endpoint"`
	Commitment  string        `yaml:"commitment"` // processed | confirmed | finalized, empty for node default
	RPCTimeout  time.Duration `yaml:"rpc_timeout"`
}

// MetadataConfig controls off-chain document fetching.
type MetadataConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Workers      int           `yaml:"workers"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend         string   `yaml:"backend"`
	Collection      string   `yaml:"collection"` // firestore collection, kafka topic
	ProjectID       string   `yaml:"project_id"`
	CredentialsFile string   `yaml:"credentials_file"`
	PostgresDSN     string   `yaml:"postgres_dsn"`
	ClickhouseDSN   string   `yaml:"clickhouse_dsn"`
	SqlitePath      string   `yaml:"sqlite_path"`
	KafkaBrokers    []string `yaml:"kafka_brokers"`
}

// HTTPConfig controls the HTTP surface.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	PersistURL      string        `yaml:"persist_url"` // target of session persist calls, derived from Addr when empty
	AllowedOrigins  []string      `yaml:"allowed_origins"` // cross-origin browsers allowed; empty is same-origin only, "*" is any
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	MaxSelection    int           `yaml:"max_selection"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file and applies defaults to unset fields.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Solana.RPCEndpoint == "" {
		c.Solana.RPCEndpoint = DefaultRPCEndpoint
	}
	if c.Solana.RPCTimeout <= 0 {
		c.Solana.RPCTimeout = DefaultRPCTimeout
	}
	if c.Metadata.FetchTimeout <= 0 {
		c.Metadata.FetchTimeout = DefaultFetchTimeout
	}
	if c.Metadata.Workers <= 0 {
		c.Metadata.Workers = DefaultWorkers
	}
	if c.Metadata.MaxBodyBytes <= 0 {
		c.Metadata.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.Collection == "" {
		c.Store.Collection = DefaultCollection
	}
	if c.Store.SqlitePath == "" {
		c.Store.SqlitePath = DefaultSqlitePath
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.HTTP.MaxSelection <= 0 {
		c.HTTP.MaxSelection = DefaultMaxSelection
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate rejects unknown backends and backends missing their settings.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Solana.RPCEndpoint); err != nil {
		return fmt.Errorf("%w: solana.rpc_endpoint: %v", ErrInvalidConfig, err)
	}
	switch c.Solana.Commitment {
	case "", "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("%w: solana.commitment %q", ErrInvalidConfig, c.Solana.Commitment)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("%w: store.project_id is required for firestore", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: store.postgres_dsn is required for postgres", ErrInvalidConfig)
		}
	case BackendClickhouse:
		if c.Store.ClickhouseDSN == "" {
			return fmt.Errorf("%w: store.clickhouse_dsn is required for clickhouse", ErrInvalidConfig)
		}
	case BackendSqlite:
		if c.Store.SqlitePath == "" {
			return fmt.Errorf("%w: store.sqlite_path is required for sqlite", ErrInvalidConfig)
		}
	case BackendKafka:
		if len(c.Store.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: store.kafka_brokers is required for kafka", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.HTTP.PersistURL != "" {
		if _, err := url.ParseRequestURI(c.HTTP.PersistURL); err != nil {
			return fmt.Errorf("%w: http.persist_url: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// PersistTarget returns the URL session persist calls are sent to: PersistURL
// when set, otherwise this process's own /persist on the loopback interface.
func (h HTTPConfig) PersistTarget() string {
	if h.PersistURL != "" {
		return h.PersistURL
	}
	host, port, err := net.SplitHostPort(h.Addr)
	if err != nil {
		return "http://" + h.Addr + "/persist"
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/persist"
}
