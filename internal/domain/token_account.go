package domain

import "github.com/shopspring/decimal"

// TokenAccount is a parsed SPL token account returned by the chain query.
// It only lives for the duration of one resolution pass.
type TokenAccount struct {
	Pubkey       string          // token account address
	ProgramOwner string          // owning program id (SPL token program)
	Owner        string          // wallet that owns the balance
	Mint         string          // mint address of the token
	Amount       string          // raw integer amount as reported by the RPC
	Decimals     int             // mint decimals
	UIAmount     decimal.Decimal // Amount / 10^Decimals
}
