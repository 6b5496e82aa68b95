package stub

import (
	"encoding/json"
	"fmt"

	"solana-nft-picker/internal/solana"
)

// TokenAccount builds a jsonParsed SPL token account as returned by getProgramAccounts.
func TokenAccount(pubkey, owner, mint, amount string, decimals int) solana.ParsedProgramAccount {
	info := fmt.Sprintf(`{"isNative":false,"mint":%q,"owner":%q,"state":"initialized","tokenAmount":{"amount":%q,"decimals":%d}}`,
		mint, owner, amount, decimals)

	return solana.ParsedProgramAccount{
		Pubkey:  pubkey,
		Owner:   solana.TokenProgramID,
		Program: "spl-token",
		Type:    "account",
		Space:   solana.TokenAccountSize,
		Info:    json.RawMessage(info),
	}
}
