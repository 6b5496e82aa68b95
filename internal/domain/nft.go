package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Nft is the display record produced from a validated off-chain metadata document.
// Name, Image and Attributes are copied verbatim from the document.
type Nft struct {
	Mint       string      `json:"mint" firestore:"mint"` // stable key, base58 mint address
	Name       string      `json:"name" firestore:"name"`
	Image      string      `json:"image" firestore:"image"`
	Attributes []Attribute `json:"attributes" firestore:"attributes"`
}

// Attribute is a single trait of an NFT.
type Attribute struct {
	TraitType string `json:"trait_type" firestore:"trait_type"`
	Value     string `json:"value" firestore:"value"`
}

// UnmarshalJSON accepts a string value or any JSON scalar. Non-string scalars
// keep their literal text ("7", "true"), so numeric traits survive the narrowing.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	var raw struct {
		TraitType json.RawMessage `json:"trait_type"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	traitType, err := scalarText(raw.TraitType)
	if err != nil {
		return fmt.Errorf("trait_type: %w", err)
	}
	value, err := scalarText(raw.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	a.TraitType = traitType
	a.Value = value
	return nil
}

// scalarText converts a raw JSON scalar into text. Objects and arrays are rejected.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", string(raw[:1]))
	default:
		return string(raw), nil
	}
}
