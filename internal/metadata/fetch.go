package metadata

import (
	"context"
	"io"
	"net/http"
	"time"
)

// DefaultFetchTimeout bounds one off-chain metadata request.
const DefaultFetchTimeout = 5 * time.Second

// FetchWithTimeout issues a GET for uri and returns the response, or nil when the
// request cannot be built, the transport fails, or no response arrives within timeout.
// Timeouts and network failures are deliberately indistinguishable to callers.
//
// The deadline stays armed while the body is read and is released by closing the body.
func FetchWithTimeout(ctx context.Context, client *http.Client, uri string, timeout time.Duration) *http.Response {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		cancel()
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
