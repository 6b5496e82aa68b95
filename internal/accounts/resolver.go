// Package accounts resolves the token accounts of a wallet and extracts the
// mints it holds as NFTs.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	json "github.com/goccy/go-json"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/solana"
)

var (
	// ErrInvalidOwner is returned when the owner is not a base58 encoded 32-byte key.
	ErrInvalidOwner = errors.New("invalid owner public key")

	// ErrMalformedAccount is returned when a parsed token account cannot be decoded.
	ErrMalformedAccount = errors.New("malformed token account")
)

var one = decimal.NewFromInt(1)

// Resolver queries the chain for SPL token accounts owned by a wallet.
type Resolver struct {
	rpc        solana.RPCClient
	commitment string
}

// Option configures Resolver.
type Option func(*Resolver)

// WithCommitment sets the commitment level used for the account query.
func WithCommitment(commitment string) Option {
	return func(r *Resolver) {
		r.commitment = commitment
	}
}

// NewResolver creates a new Resolver.
func NewResolver(rpc solana.RPCClient, opts ...Option) *Resolver {
	r := &Resolver{rpc: rpc}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeOwner validates a wallet key and returns its canonical base58 form.
func NormalizeOwner(owner string) (string, error) {
	raw, err := base58.Decode(owner)
	if err != nil || len(raw) != common.PublicKeyLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}
	return common.PublicKeyFromBytes(raw).ToBase58(), nil
}

// ResolveTokenAccounts returns all token accounts owned by owner.
// The query is filtered server-side by account size and by the owner field
// at its fixed offset. RPC failures are returned as-is; nothing is retried.
func (r *Resolver) ResolveTokenAccounts(ctx context.Context, owner string) ([]domain.TokenAccount, error) {
	owner, err := NormalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	accounts, err := r.rpc.GetParsedProgramAccounts(ctx, solana.TokenProgramID, &solana.ProgramAccountsOpts{
		Commitment: r.commitment,
		Filters: []solana.Filter{
			{DataSize: solana.TokenAccountSize},
			{Memcmp: &solana.Memcmp{Offset: solana.TokenAccountOwnerOffset, Bytes: owner}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get token accounts for %s: %w", owner, err)
	}

	records := make([]domain.TokenAccount, 0, len(accounts))
	for _, acc := range accounts {
		rec, err := parseTokenAccount(acc)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// ExtractOwnedMints returns the mints of records holding exactly one whole token.
// Input order is preserved; no deduplication is performed.
func ExtractOwnedMints(records []domain.TokenAccount) []string {
	mints := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.UIAmount.Equal(one) {
			mints = append(mints, rec.Mint)
		}
	}
	return mints
}

// tokenAccountInfo is the jsonParsed "info" payload of an SPL token account.
type tokenAccountInfo struct {
	Mint        string `json:"mint"`
	Owner       string `json:"owner"`
	TokenAmount struct {
		Amount   string `json:"amount"`
		Decimals int    `json:"decimals"`
	} `json:"tokenAmount"`
}

func parseTokenAccount(acc solana.ParsedProgramAccount) (domain.TokenAccount, error) {
	if len(acc.Info) == 0 {
		return domain.TokenAccount{}, fmt.Errorf("%w: %s has no parsed data", ErrMalformedAccount, acc.Pubkey)
	}

	var info tokenAccountInfo
	if err := json.Unmarshal(acc.Info, &info); err != nil {
		return domain.TokenAccount{}, fmt.Errorf("%w: %s: %v", ErrMalformedAccount, acc.Pubkey, err)
	}

	amount, err := decimal.NewFromString(info.TokenAmount.Amount)
	if err != nil {
		return domain.TokenAccount{}, fmt.Errorf("%w: %s amount %q", ErrMalformedAccount, acc.Pubkey, info.TokenAmount.Amount)
	}

	return domain.TokenAccount{
		Pubkey:       acc.Pubkey,
		ProgramOwner: acc.Owner,
		Owner:        info.Owner,
		Mint:         info.Mint,
		Amount:       info.TokenAmount.Amount,
		Decimals:     info.TokenAmount.Decimals,
		UIAmount:     amount.Shift(-int32(info.TokenAmount.Decimals)),
	}, nil
}
