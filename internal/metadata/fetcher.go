// Package metadata resolves Metaplex metadata for mints and turns the
// off-chain JSON documents into display records.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/observability"
	"solana-nft-picker/internal/solana"
)

// Defaults.
const (
	DefaultWorkers      = 8
	DefaultMaxBodyBytes = 1 << 20
)

// Fetch outcomes, also used as metric labels.
const (
	resultOK          = "ok"
	resultUnavailable = "unavailable"
	resultBadStatus   = "bad_status"
	resultBadBody     = "bad_body"
	resultBadJSON     = "bad_json"
	resultInvalid     = "invalid"
)

// Fetcher resolves mints into validated Nft display records.
type Fetcher struct {
	rpc          solana.RPCClient
	client       *http.Client
	timeout      time.Duration
	workers      int
	maxBodyBytes int64
	logger       *zap.Logger
}

// Option configures Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for off-chain documents.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFetchTimeout sets the per-document timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithWorkers bounds the number of concurrent document fetches.
// One worker fetches documents strictly one after another.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		f.workers = n
	}
}

// WithMaxBodyBytes caps the size of a metadata document.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a new Fetcher.
func NewFetcher(rpc solana.RPCClient, opts ...Option) *Fetcher {
	f := &Fetcher{
		rpc:          rpc,
		client:       http.DefaultClient,
		timeout:      DefaultFetchTimeout,
		workers:      DefaultWorkers,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.workers < 1 {
		f.workers = 1
	}
	return f
}

// entry is a mint whose on-chain metadata points at an off-chain document.
type entry struct {
	mint string
	uri  string
}

// ResolveNfts returns display records for mints, in mint order.
// Mints without metadata, without a URI, or whose document cannot be fetched or
// validated are skipped. Only a failure of the batched account load is returned.
func (f *Fetcher) ResolveNfts(ctx context.Context, mints []string) ([]domain.Nft, error) {
	entries, err := f.loadEntries(ctx, mints)
	if err != nil {
		return nil, err
	}

	slots := make([]*domain.Nft, len(entries))

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, e := range entries {
		g.Go(func() error {
			if nft, ok := f.fetchOne(ctx, e); ok {
				slots[i] = &nft
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nfts := make([]domain.Nft, 0, len(entries))
	for _, nft := range slots {
		if nft != nil {
			nfts = append(nfts, *nft)
		}
	}
	return nfts, nil
}

// loadEntries resolves the metadata accounts of mints in as few RPC calls as
// the getMultipleAccounts key limit allows.
func (f *Fetcher) loadEntries(ctx context.Context, mints []string) ([]entry, error) {
	addrs := make([]string, 0, len(mints))
	owners := make([]string, 0, len(mints))
	for _, mint := range mints {
		addr, err := solana.MetadataAddress(mint)
		if err != nil {
			f.logger.Warn("skipping mint with invalid address", zap.String("mint", mint), zap.Error(err))
			continue
		}
		addrs = append(addrs, addr)
		owners = append(owners, mint)
	}

	entries := make([]entry, 0, len(addrs))
	for start := 0; start < len(addrs); start += solana.MaxMultipleAccounts {
		end := min(start+solana.MaxMultipleAccounts, len(addrs))

		infos, err := f.rpc.GetMultipleAccounts(ctx, addrs[start:end])
		if err != nil {
			return nil, fmt.Errorf("load metadata accounts: %w", err)
		}

		for i, info := range infos {
			mint := owners[start+i]
			if info == nil || len(info.Data) == 0 {
				continue
			}
			if info.Owner != solana.TokenMetadataProgramID {
				f.logger.Warn("skipping metadata account with foreign owner", zap.String("mint", mint), zap.String("owner", info.Owner))
				continue
			}

			md, err := token_metadata.MetadataDeserialize(info.Data)
			if err != nil {
				f.logger.Warn("skipping undecodable metadata account", zap.String("mint", mint), zap.Error(err))
				continue
			}
			if got := md.Mint.ToBase58(); got != mint {
				f.logger.Warn("skipping metadata for another mint", zap.String("mint", mint), zap.String("got", got))
				continue
			}

			uri := strings.TrimSpace(strings.TrimRight(md.Data.Uri, "\x00"))
			if uri == "" {
				continue
			}
			entries = append(entries, entry{mint: mint, uri: uri})
		}
	}

	return entries, nil
}

// fetchOne fetches and validates a single document. Failures are logged, never returned.
func (f *Fetcher) fetchOne(ctx context.Context, e entry) (domain.Nft, bool) {
	log := f.logger.With(zap.String("mint", e.mint), zap.String("uri", e.uri))

	resp := FetchWithTimeout(ctx, f.client, e.uri, f.timeout)
	if resp == nil {
		log.Warn("failed to fetch uri")
		observability.RecordMetadataFetch(resultUnavailable)
		return domain.Nft{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("unexpected metadata status", zap.Int("status", resp.StatusCode))
		observability.RecordMetadataFetch(resultBadStatus)
		return domain.Nft{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil || int64(len(body)) > f.maxBodyBytes {
		log.Warn("failed to read metadata body", zap.Error(err), zap.Int("bytes", len(body)))
		observability.RecordMetadataFetch(resultBadBody)
		return domain.Nft{}, false
	}

	nft, err := ParseDocument(e.mint, body)
	if err != nil {
		log.Warn("wrong metadata schema", zap.Error(err))
		if errors.Is(err, ErrMalformedDocument) {
			observability.RecordMetadataFetch(resultBadJSON)
		} else {
			observability.RecordMetadataFetch(resultInvalid)
		}
		return domain.Nft{}, false
	}

	observability.RecordMetadataFetch(resultOK)
	return nft, true
}
