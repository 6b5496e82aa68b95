// Package backends opens the selection store named by configuration.
package backends

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-nft-picker/internal/config"
	"solana-nft-picker/internal/storage"
	chstore "solana-nft-picker/internal/storage/clickhouse"
	fsstore "solana-nft-picker/internal/storage/firestore"
	kafkastore "solana-nft-picker/internal/storage/kafka"
	"solana-nft-picker/internal/storage/memory"
	"solana-nft-picker/internal/storage/migrations"
	pgstore "solana-nft-picker/internal/storage/postgres"
	sqlitestore "solana-nft-picker/internal/storage/sqlite"
)

// Opener returns a storage.Opener for cfg. Connections are made when the
// opener runs, not here, so credentials are only read on first use.
func Opener(cfg config.StoreConfig, logger *zap.Logger) storage.Opener {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context) (storage.SelectionStore, error) {
		store, err := open(ctx, cfg)
		if err != nil {
			logger.Error("failed to open store", zap.String("backend", cfg.Backend), zap.Error(err))
			return nil, err
		}
		logger.Info("store opened", zap.String("backend", cfg.Backend), zap.String("collection", cfg.Collection))
		return storage.Instrument(store, cfg.Backend), nil
	}
}

func open(ctx context.Context, cfg config.StoreConfig) (storage.SelectionStore, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.NewSelectionStore(), nil

	case config.BackendFirestore:
		client, err := fsstore.NewClient(ctx, cfg.ProjectID, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return fsstore.NewSelectionStore(client, cfg.Collection), nil

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return pgstore.NewSelectionStore(pool), nil

	case config.BackendClickhouse:
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, err
		}
		return chstore.NewSelectionStore(conn), nil

	case config.BackendSqlite:
		db, err := sqlitestore.Open(ctx, cfg.SqlitePath)
		if err != nil {
			return nil, err
		}
		return sqlitestore.NewSelectionStore(db), nil

	case config.BackendKafka:
		return kafkastore.NewSelectionStore(kafkastore.NewWriter(cfg.KafkaBrokers, cfg.Collection)), nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", storage.ErrInvalidInput, cfg.Backend)
	}
}
