package solana

import "encoding/json"

// ProgramAccountsOpts configures getProgramAccounts server-side filtering.
type ProgramAccountsOpts struct {
	Commitment string   // optional: processed | confirmed | finalized
	Filters    []Filter // all filters must match
}

// Filter is a getProgramAccounts filter. Exactly one field should be set.
type Filter struct {
	DataSize uint64
	Memcmp   *Memcmp
}

// Memcmp matches base58 encoded bytes at a fixed offset of the account data.
type Memcmp struct {
	Offset uint64
	Bytes  string
}

// ParsedProgramAccount is one entry of a jsonParsed getProgramAccounts response.
type ParsedProgramAccount struct {
	Pubkey   string
	Lamports uint64
	Owner    string // owning program id
	Program  string // parser name, e.g. "spl-token"
	Type     string // parsed account type, e.g. "account"
	Space    uint64
	Info     json.RawMessage // parser specific payload
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded account data
	Executable bool
	RentEpoch  uint64
}

func (f Filter) toParam() map[string]interface{} {
	if f.Memcmp != nil {
		return map[string]interface{}{
			"memcmp": map[string]interface{}{
				"offset": f.Memcmp.Offset,
				"bytes":  f.Memcmp.Bytes,
			},
		}
	}
	return map[string]interface{}{"dataSize": f.DataSize}
}
