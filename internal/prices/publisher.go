package prices

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/melihalgin1/CryptoVault/internal/config"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type SnapshotMsg struct {
	FetchedAt int64    `json:"fetched_at"`
	IDs       []string `json:"ids"`
	Quotes    Snapshot `json:"quotes"`
}

// PublishingFetcher forwards every successful snapshot to a Kafka topic for
// downstream analytics. Publish failures are logged and never fail the fetch.
type PublishingFetcher struct {
	next   Fetcher
	writer messageWriter
	log    *slog.Logger
	now    func() time.Time
}

func NewPublishingFetcher(next Fetcher, writer messageWriter, log *slog.Logger) *PublishingFetcher {
	return &PublishingFetcher{
		next:   next,
		writer: writer,
		log:    log,
		now:    time.Now,
	}
}

func (p *PublishingFetcher) Fetch(ctx context.Context, ids []string) (Snapshot, error) {
	snap, err := p.next.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(SnapshotMsg{
		FetchedAt: p.now().UnixMilli(),
		IDs:       ids,
		Quotes:    snap,
	})
	if err != nil {
		p.log.Error("failed to marshal snapshot message", "error", err)
		return snap, nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strings.Join(ids, ",")),
		Value: payload,
	})
	if err != nil {
		p.log.Warn("failed to publish price snapshot", "error", err)
	}

	return snap, nil
}

// NewKafkaWriter builds an async writer so publishing never delays a poll.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  cfg.MaxAttempts,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
}
