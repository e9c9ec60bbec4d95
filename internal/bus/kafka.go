package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type envelope struct {
	PollID string `json:"poll_id"`
	Update
}

// KafkaBus routes updates through a Kafka topic so subscribers on every
// instance see them. Messages are keyed by poll id with a hash balancer,
// which keeps all updates for one poll on one partition and therefore in
// publish order.
type KafkaBus struct {
	writer *kafka.Writer
	local  *MemoryBus
}

func NewKafkaBus(brokers []string, topic string) *KafkaBus {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}

	return &KafkaBus{writer: w, local: NewMemoryBus()}
}

func (kb *KafkaBus) Publish(ctx context.Context, pollID string, u Update) error {
	value, err := json.Marshal(envelope{PollID: pollID, Update: u})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(pollID),
		Value: value,
	}
	if err := kb.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write update to kafka: %w", err)
	}
	return nil
}

func (kb *KafkaBus) Subscribe(pollID string) (<-chan Update, func()) {
	return kb.local.Subscribe(pollID)
}

func (kb *KafkaBus) Close() error {
	return kb.writer.Close()
}

// Relay consumes the topic and replays every update into the local hub.
// Each instance runs its own consumer group so all of them get the full
// stream.
type Relay struct {
	reader *kafka.Reader
	local  *MemoryBus
	log    *zap.Logger
}

func NewRelay(brokers []string, topic string, kb *KafkaBus, log *zap.Logger) *Relay {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "poll-live-relay-" + uuid.NewString(),
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Relay{reader: r, local: kb.local, log: log}
}

func (r *Relay) Run(ctx context.Context) {
	defer r.reader.Close()

	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("relay read failed", zap.Error(err))
			continue
		}

		var env envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			r.log.Warn("relay skipping malformed update", zap.Error(err))
			continue
		}
		_ = r.local.Publish(ctx, env.PollID, env.Update)
	}
}
