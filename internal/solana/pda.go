package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	maxSeeds     = 16
	maxSeedLen   = 32
	pdaMarker    = "ProgramDerivedAddress"
	metadataSeed = "metadata"
)

// ErrNoViableBump is returned when no bump seed yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// FindProgramAddress derives a Program Derived Address and its bump seed.
// Bumps are tried from 255 downwards; the first hash that is not a valid
// ed25519 point is the address.
func FindProgramAddress(seeds [][]byte, programID []byte) ([]byte, uint8, error) {
	if len(seeds) > maxSeeds-1 {
		return nil, 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return nil, 0, fmt.Errorf("seed length %d exceeds %d", len(seed), maxSeedLen)
		}
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte(pdaMarker)...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return hash[:], bump, nil
		}
	}

	return nil, 0, ErrNoViableBump
}

// MetadataAddress derives the Metaplex metadata account for a mint.
// Seeds: ["metadata", metadata_program_id, mint].
func MetadataAddress(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint %q: %w", mint, err)
	}
	if len(mintBytes) != 32 {
		return "", fmt.Errorf("mint %q: expected 32 bytes, got %d", mint, len(mintBytes))
	}
	programBytes, err := base58.Decode(TokenMetadataProgramID)
	if err != nil {
		return "", fmt.Errorf("decode metadata program id: %w", err)
	}

	pda, _, err := FindProgramAddress([][]byte{[]byte(metadataSeed), programBytes, mintBytes}, programBytes)
	if err != nil {
		return "", err
	}
	return base58.Encode(pda), nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
