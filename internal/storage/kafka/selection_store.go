// Package kafka publishes saved selections to a Kafka topic.
// The topic is the append-only log; nothing is read back.
package kafka

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"

	"solana-nft-picker/internal/domain"
	"solana-nft-picker/internal/storage"
)

// Writer is the subset of *kafka.Writer used by the store.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

// NewWriter creates a writer for topic. Messages are partitioned by key, so
// the selections of one owner stay ordered.
func NewWriter(brokers []string, topic string) *sdk.Writer {
	return &sdk.Writer{
		Addr:                   sdk.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &sdk.Hash{},
		RequiredAcks:           sdk.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

// SelectionStore implements storage.SelectionStore on a Kafka topic.
type SelectionStore struct {
	writer Writer
}

// NewSelectionStore creates a new SelectionStore.
func NewSelectionStore(writer Writer) *SelectionStore {
	return &SelectionStore{writer: writer}
}

// Compile-time interface check.
var _ storage.SelectionStore = (*SelectionStore)(nil)

// Append publishes the document keyed by owner. The write blocks until the
// brokers acknowledge it.
func (s *SelectionStore) Append(ctx context.Context, sel *domain.SavedSelection) error {
	if err := storage.ValidateSelection(sel); err != nil {
		return err
	}

	value, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode saved selection: %w", err)
	}

	err = s.writer.WriteMessages(ctx, sdk.Message{
		Key:   []byte(sel.Owner),
		Value: value,
		Time:  sel.CreatedAt,
		Headers: []sdk.Header{
			{Key: "id", Value: []byte(sel.ID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish saved selection: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *SelectionStore) Close() error {
	return s.writer.Close()
}
