package metadata

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"solana-nft-picker/internal/domain"
)

var (
	// ErrMalformedDocument is returned when the body is not a JSON object of the expected types.
	ErrMalformedDocument = errors.New("malformed metadata document")

	// ErrInvalidDocument is returned when name, image or attributes is missing or empty.
	ErrInvalidDocument = errors.New("invalid metadata schema")
)

// document is the subset of the off-chain metadata standard shown in the grid.
type document struct {
	Name       string             `json:"name"`
	Image      string             `json:"image"`
	Attributes []domain.Attribute `json:"attributes"`
}

// ParseDocument validates an off-chain metadata document and narrows it into a
// display record for mint. name and image must be non-empty strings and
// attributes must be present as an array (possibly empty).
func ParseDocument(mint string, body []byte) (domain.Nft, error) {
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Nft{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	switch {
	case doc.Name == "":
		return domain.Nft{}, fmt.Errorf("%w: missing name", ErrInvalidDocument)
	case doc.Image == "":
		return domain.Nft{}, fmt.Errorf("%w: missing image", ErrInvalidDocument)
	case doc.Attributes == nil:
		return domain.Nft{}, fmt.Errorf("%w: missing attributes", ErrInvalidDocument)
	}

	return domain.Nft{
		Mint:       mint,
		Name:       doc.Name,
		Image:      doc.Image,
		Attributes: doc.Attributes,
	}, nil
}
