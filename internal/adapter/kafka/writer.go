package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/mart-locator/internal/config"
	"github.com/couchcryptid/mart-locator/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// StatusWriter publishes pipeline status updates to a Kafka topic.
// It implements pipeline.StatusSink.
type StatusWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewStatusWriter creates a Kafka producer for the configured status topic.
func NewStatusWriter(cfg *config.Config, logger *slog.Logger) *StatusWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaStatusTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &StatusWriter{writer: w, logger: logger}
}

// Publish writes one status update. Updates of the same run share a key so
// they stay ordered within a partition.
func (w *StatusWriter) Publish(ctx context.Context, update domain.StatusUpdate) error {
	msg, err := serializeToMessage(update)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

func (w *StatusWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StatusUpdate into a Kafka message.
func serializeToMessage(update domain.StatusUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(update.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "state", Value: []byte(update.State)},
			{Key: "emitted_at", Value: []byte(update.EmittedAt.Format(time.RFC3339))},
		},
	}, nil
}
