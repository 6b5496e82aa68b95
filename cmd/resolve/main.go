// Package main prints the NFTs a wallet would see in the picker, or the
// selections already saved for it.
//
// Usage:
//
//	resolve [flags] <owner>
//	resolve [flags] saved <owner>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"solana-nft-picker/internal/accounts"
	"solana-nft-picker/internal/config"
	"solana-nft-picker/internal/metadata"
	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/pipeline"
	"solana-nft-picker/internal/solana"
	"solana-nft-picker/internal/storage"
	"solana-nft-picker/internal/storage/backends"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	cfg, args, err := config.LoadArgs("resolve", os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var out any
	switch {
	case len(args) == 1:
		out, err = resolve(ctx, cfg, logger, args[0])
	case len(args) == 2 && args[0] == "saved":
		out, err = listSaved(ctx, cfg, logger, args[1])
	default:
		fmt.Fprintln(os.Stderr, "usage: resolve [flags] <owner> | resolve [flags] saved <owner>")
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidOwner) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Fatal("resolve failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal("failed to write output", zap.Error(err))
	}
}

type resolveOutput struct {
	Owner string `json:"owner"`
	Nfts  any    `json:"nfts"`
}

func resolve(ctx context.Context, cfg *config.Config, logger *zap.Logger, owner string) (any, error) {
	owner, err := accounts.NormalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint, solana.WithTimeout(cfg.Solana.RPCTimeout))
	p := pipeline.New(rpc, logger.Named("pipeline"),
		metadata.WithFetchTimeout(cfg.Metadata.FetchTimeout),
		metadata.WithWorkers(cfg.Metadata.Workers),
		metadata.WithMaxBodyBytes(cfg.Metadata.MaxBodyBytes),
	).WithCommitment(cfg.Solana.Commitment)

	nfts, err := p.Resolve(ctx, owner)
	if err != nil {
		return nil, err
	}
	return resolveOutput{Owner: owner, Nfts: nfts}, nil
}

func listSaved(ctx context.Context, cfg *config.Config, logger *zap.Logger, owner string) (any, error) {
	owner, err := accounts.NormalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	store, err := backends.Opener(cfg.Store, logger.Named("store"))(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	reader, ok := store.(storage.SelectionReader)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrReadUnsupported, cfg.Store.Backend)
	}
	return reader.ListByOwner(ctx, owner)
}
