// Package firestore stores saved selections as documents in a Firestore collection.
package firestore

import (
	"context"
	"errors"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// DefaultCollection is the collection saved selections are appended to.
const DefaultCollection = "saved_nfts"

// Client wraps a Firestore client with its project.
type Client struct {
	*gfs.Client
	ProjectID string
}

// NewClient creates a Firestore client. An empty credentialsFile falls back to
// Application Default Credentials; FIRESTORE_EMULATOR_HOST is honoured by the SDK.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*Client, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &Client{Client: client, ProjectID: projectID}, nil
}

// Close closes the client.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
