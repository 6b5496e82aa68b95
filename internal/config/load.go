package config

import (
	"flag"
	"time"
)

// Load builds the configuration for a command: defaults or the file named by
// -config, then environment overrides, then explicitly set flags. The result
// is validated.
func Load(name string, args []string, lookup LookupFunc) (*Config, error) {
	cfg, _, err := LoadArgs(name, args, lookup)
	return cfg, err
}

// LoadArgs is Load that also returns the positional arguments left after the flags.
func LoadArgs(name string, args []string, lookup LookupFunc) (*Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	rpcEndpoint := fs.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	backend := fs.String("store", "", "Store backend (memory, firestore, postgres, clickhouse, sqlite, kafka)")
	addr := fs.String("addr", "", "HTTP listen address")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, console)")
	workers := fs.Int("workers", 0, "Concurrent metadata fetches")
	fetchTimeout := fs.Duration("fetch-timeout", 0, "Per-document metadata fetch timeout")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := Default()
	if *configPath != "" {
		var err error
		if cfg, err = LoadFile(*configPath); err != nil {
			return nil, nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rpc-endpoint":
			cfg.Solana.RPCEndpoint = *rpcEndpoint
		case "store":
			cfg.Store.Backend = *backend
		case "addr":
			cfg.HTTP.Addr = *addr
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "workers":
			if *workers > 0 {
				cfg.Metadata.Workers = *workers
			}
		case "fetch-timeout":
			if *fetchTimeout > time.Duration(0) {
				cfg.Metadata.FetchTimeout = *fetchTimeout
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}
