package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"solana-nft-picker/internal/observability"
)

// DefaultTimeout bounds one RPC exchange.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured RPC URL.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC call. Failures are returned as-is; nothing is retried.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	reqID := c.requestID.Add(1)
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

// GetParsedProgramAccounts returns all accounts owned by programID that match opts.Filters.
func (c *HTTPClient) GetParsedProgramAccounts(ctx context.Context, programID string, opts *ProgramAccountsOpts) ([]ParsedProgramAccount, error) {
	config := map[string]interface{}{
		"encoding": "jsonParsed",
	}
	if opts != nil {
		if opts.Commitment != "" {
			config["commitment"] = opts.Commitment
		}
		if len(opts.Filters) > 0 {
			filters := make([]map[string]interface{}, len(opts.Filters))
			for i, f := range opts.Filters {
				filters[i] = f.toParam()
			}
			config["filters"] = filters
		}
	}

	var result []getProgramAccountsItem
	if err := c.call(ctx, "getProgramAccounts", []interface{}{programID, config}, &result); err != nil {
		return nil, err
	}

	accounts := make([]ParsedProgramAccount, 0, len(result))
	for _, item := range result {
		acc := ParsedProgramAccount{
			Pubkey:   item.Pubkey,
			Lamports: item.Account.Lamports,
			Owner:    item.Account.Owner,
			Space:    item.Account.Space,
		}

		// Accounts the node cannot parse come back as [base64, encoding].
		data := bytes.TrimSpace(item.Account.Data)
		if len(data) > 0 && data[0] == '{' {
			var parsed getProgramAccountsParsedData
			if err := json.Unmarshal(data, &parsed); err != nil {
				return nil, fmt.Errorf("unmarshal parsed data for %s: %w", item.Pubkey, err)
			}
			acc.Program = parsed.Program
			acc.Type = parsed.Parsed.Type
			acc.Info = parsed.Parsed.Info
			if parsed.Space > 0 {
				acc.Space = parsed.Space
			}
		}

		accounts = append(accounts, acc)
	}

	return accounts, nil
}

// getProgramAccountsItem is the raw RPC response item for getProgramAccounts.
type getProgramAccountsItem struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data       json.RawMessage `json:"data"`
		Executable bool            `json:"executable"`
		Lamports   uint64          `json:"lamports"`
		Owner      string          `json:"owner"`
		Space      uint64          `json:"space"`
	} `json:"account"`
}

type getProgramAccountsParsedData struct {
	Program string `json:"program"`
	Parsed  struct {
		Info json.RawMessage `json:"info"`
		Type string          `json:"type"`
	} `json:"parsed"`
	Space uint64 `json:"space"`
}

// GetMultipleAccounts retrieves account data for the given keys in one call.
// The result has the same length and order as pubkeys; missing accounts are nil.
func (c *HTTPClient) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	if len(pubkeys) > MaxMultipleAccounts {
		return nil, fmt.Errorf("getMultipleAccounts: %d keys exceeds limit %d", len(pubkeys), MaxMultipleAccounts)
	}

	params := []interface{}{
		pubkeys,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getMultipleAccountsResult
	if err := c.call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, err
	}

	if len(result.Value) != len(pubkeys) {
		return nil, fmt.Errorf("getMultipleAccounts: expected %d entries, got %d", len(pubkeys), len(result.Value))
	}

	infos := make([]*AccountInfo, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}

		info := &AccountInfo{
			Lamports:   v.Lamports,
			Owner:      v.Owner,
			Executable: v.Executable,
			RentEpoch:  v.RentEpoch,
		}
		if len(v.Data) >= 1 {
			decoded, err := base64.StdEncoding.DecodeString(v.Data[0])
			if err != nil {
				return nil, fmt.Errorf("decode account data for %s: %w", pubkeys[i], err)
			}
			info.Data = decoded
		}
		infos[i] = info
	}

	return infos, nil
}

type getMultipleAccountsResult struct {
	Value []*getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetSlot retrieves the current slot.
func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var result int64
	if err := c.call(ctx, "getSlot", nil, &result); err != nil {
		return 0, err
	}
	return result, nil
}
