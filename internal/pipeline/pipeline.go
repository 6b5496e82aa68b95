// Package pipeline composes the account and metadata stages into a single
// owner-to-grid resolution pass.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-nft-picker/internal/accounts"
	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/metadata"
	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/solana"
)

// Pipeline resolves the displayable NFTs of a wallet.
type Pipeline struct {
	rpc      solana.RPCClient
	resolver *accounts.Resolver
	fetcher  *metadata.Fetcher
	logger   *zap.Logger
	clock    func() time.Time
}

// New creates a pipeline over rpc. Fetcher options are passed through.
func New(rpc solana.RPCClient, logger *zap.Logger, opts ...metadata.Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]metadata.Option{metadata.WithLogger(logger.Named("metadata"))}, opts...)
	return &Pipeline{
		rpc:      rpc,
		resolver: accounts.NewResolver(rpc),
		fetcher:  metadata.NewFetcher(rpc, opts...),
		logger:   logger,
		clock:    time.Now,
	}
}

// WithClock sets a custom clock used for run duration.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// WithCommitment sets the commitment level of the token account query.
func (p *Pipeline) WithCommitment(commitment string) *Pipeline {
	p.resolver = accounts.NewResolver(p.rpc, accounts.WithCommitment(commitment))
	return p
}

// Resolve runs one pass for owner: token accounts, mints held with a UI amount
// of exactly one, then their validated metadata records in mint order.
func (p *Pipeline) Resolve(ctx context.Context, owner string) ([]domain.Nft, error) {
	start := p.clock()
	log := p.logger.With(zap.String("owner", owner))

	nfts, err := p.resolve(ctx, owner)
	elapsed := p.clock().Sub(start).Seconds()
	if err != nil {
		observability.RecordPipelineRun("error", elapsed)
		log.Warn("resolution pass failed", zap.Error(err))
		return nil, err
	}

	observability.RecordPipelineRun("ok", elapsed)
	log.Info("resolution pass complete", zap.Int("nfts", len(nfts)), zap.Float64("seconds", elapsed))
	return nfts, nil
}

func (p *Pipeline) resolve(ctx context.Context, owner string) ([]domain.Nft, error) {
	records, err := p.resolver.ResolveTokenAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}

	mints := accounts.ExtractOwnedMints(records)
	p.logger.Debug("owned mints", zap.String("owner", owner), zap.Int("accounts", len(records)), zap.Int("mints", len(mints)))
	if len(mints) == 0 {
		return []domain.Nft{}, nil
	}

	return p.fetcher.ResolveNfts(ctx, mints)
}
