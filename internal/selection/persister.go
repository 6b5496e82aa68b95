package selection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"solana-nft-picker/internal/domain"
)

// HTTPPersister posts selections to the persistence endpoint.
type HTTPPersister struct {
	url    string
	client *http.Client
}

// NewHTTPPersister creates a persister for url. A nil client uses http.DefaultClient.
func NewHTTPPersister(url string, client *http.Client) *HTTPPersister {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPersister{url: url, client: client}
}

// Persist sends req as JSON. Any status other than 200 is a failure.
func (p *HTTPPersister) Persist(ctx context.Context, req domain.PersistRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode persist request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create persist request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send persist request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("persist failed: %d %s", resp.StatusCode, bytes.TrimSpace(text))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
