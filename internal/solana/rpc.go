package solana

import "context"

// Well-known program ids.
const (
	// TokenProgramID is the SPL Token program.
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

	// TokenMetadataProgramID is the Metaplex Token Metadata program.
	TokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// TokenAccountSize is the byte size of an SPL token account.
// The owner pubkey is stored at TokenAccountOwnerOffset.
const (
	TokenAccountSize        = 165
	TokenAccountOwnerOffset = 32
)

// MaxMultipleAccounts is the per-call key limit of getMultipleAccounts.
const MaxMultipleAccounts = 100

// RPCClient defines the Solana RPC HTTP interface used by the resolvers.
type RPCClient interface {
	// GetParsedProgramAccounts returns accounts owned by a program, jsonParsed encoded.
	GetParsedProgramAccounts(ctx context.Context, programID string, opts *ProgramAccountsOpts) ([]ParsedProgramAccount, error)

	// GetMultipleAccounts returns raw account data for up to MaxMultipleAccounts keys.
	// Missing accounts are reported as nil entries at the same index.
	GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error)
}
