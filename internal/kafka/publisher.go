package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
)

// EventMessage is the wire format of a committed match event
type EventMessage struct {
	Event      domain.MatchEvent  `json:"event"`
	PublicCode string             `json:"public_code"`
	Status     domain.MatchStatus `json:"status"`
	HomeScore  int                `json:"home_score"`
	AwayScore  int                `json:"away_score"`
}

// Publisher writes committed match events to the events topic, keyed by
// match so one match's events stay on one partition in order.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewPublisher creates a publisher backed by a synchronous producer
func NewPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Retry.Backoff = cfg.RetryDelay
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg.EventsTopic, logger), nil
}

// NewPublisherWithProducer wraps an existing producer
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// PublishMatchEvents sends the events of one committed mutation as a batch
func (p *Publisher) PublishMatchEvents(_ context.Context, match domain.Match, events []domain.MatchEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, ev := range events {
		data, err := json.Marshal(EventMessage{
			Event:      ev,
			PublicCode: match.PublicCode,
			Status:     match.Status,
			HomeScore:  match.HomeScore,
			AwayScore:  match.AwayScore,
		})
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.StringEncoder(match.ID),
			Value:     sarama.ByteEncoder(data),
			Timestamp: ev.Timestamp,
			Headers: []sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(ev.Type)},
			},
		})
	}

	start := time.Now()
	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("sending events: %w", err)
	}
	p.logger.Debug("published match events",
		"match_id", match.ID,
		"count", len(msgs),
		"duration", time.Since(start),
	)
	return nil
}

// Close closes the underlying producer
func (p *Publisher) Close() error {
	return p.producer.Close()
}
