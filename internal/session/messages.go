package session

import "solana-nft-picker/internal/selection"

// Client message types.
const (
	typeConnect    = "connect"
	typeDisconnect = "disconnect"
	typeToggle     = "toggle"
	typePersist    = "persist"
)

// Server message types.
const (
	typeSnapshot = "snapshot"
	typeError    = "error"
)

// clientMessage is a command sent by the browser.
type clientMessage struct {
	Type  string `json:"type"`
	Owner string `json:"owner,omitempty"`
	Mint  string `json:"mint,omitempty"`
}

// snapshotMessage carries the full session state after every change.
type snapshotMessage struct {
	Type string `json:"type"`
	selection.Snapshot
}

// errorMessage reports a rejected command. Session state is unchanged.
type errorMessage struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error"`
}
