package stub

import (
	"context"
	"sync"

	"solana-nft-picker/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Program accounts are keyed by the memcmp bytes of the owner filter, which is
// how the token account query selects a wallet.
type RPCClient struct {
	mu sync.Mutex

	ProgramAccounts map[string][]solana.ParsedProgramAccount // owner -> accounts
	Accounts        map[string]*solana.AccountInfo           // pubkey -> account

	// ProgramAccountsErr and MultipleAccountsErr, when set, are returned by the
	// corresponding calls.
	ProgramAccountsErr  error
	MultipleAccountsErr error

	// Slot is returned by GetSlot unless SlotErr is set.
	Slot    int64
	SlotErr error

	ProgramAccountsCalls  int
	MultipleAccountsCalls int
	LastOpts              *solana.ProgramAccountsOpts
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		ProgramAccounts: make(map[string][]solana.ParsedProgramAccount),
		Accounts:        make(map[string]*solana.AccountInfo),
	}
}

// GetParsedProgramAccounts returns accounts registered for the owner in the memcmp filter.
func (c *RPCClient) GetParsedProgramAccounts(_ context.Context, _ string, opts *solana.ProgramAccountsOpts) ([]solana.ParsedProgramAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ProgramAccountsCalls++
	c.LastOpts = opts
	if c.ProgramAccountsErr != nil {
		return nil, c.ProgramAccountsErr
	}

	var owner string
	if opts != nil {
		for _, f := range opts.Filters {
			if f.Memcmp != nil && f.Memcmp.Offset == solana.TokenAccountOwnerOffset {
				owner = f.Memcmp.Bytes
			}
		}
	}

	accounts := c.ProgramAccounts[owner]
	out := make([]solana.ParsedProgramAccount, len(accounts))
	copy(out, accounts)
	return out, nil
}

// GetMultipleAccounts returns registered accounts, nil for unknown keys.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.MultipleAccountsCalls++
	if c.MultipleAccountsErr != nil {
		return nil, c.MultipleAccountsErr
	}

	out := make([]*solana.AccountInfo, len(pubkeys))
	for i, key := range pubkeys {
		if acc, ok := c.Accounts[key]; ok {
			accCopy := *acc
			out[i] = &accCopy
		}
	}
	return out, nil
}

// GetSlot returns Slot or SlotErr.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SlotErr != nil {
		return 0, c.SlotErr
	}
	return c.Slot, nil
}

// AddProgramAccounts registers token accounts for an owner.
func (c *RPCClient) AddProgramAccounts(owner string, accounts ...solana.ParsedProgramAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProgramAccounts[owner] = append(c.ProgramAccounts[owner], accounts...)
}

// AddAccount registers raw account data under a pubkey.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}
