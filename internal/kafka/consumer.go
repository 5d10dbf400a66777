package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
)

// CommandHandler applies match commands
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd domain.Command) error
}

// Consumer consumes match commands from Kafka. Commands of one partition are
// applied strictly in order.
type Consumer struct {
	config        *config.KafkaConfig
	handler       CommandHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler CommandHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start begins consuming messages from Kafka. It returns once the first
// session is set up, or with an error when that takes longer than the
// configured ready timeout; in that case the consumer group is closed.
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.CommandsTopic,
		"group_id", c.config.GroupID,
	)

	// Each session closes its own channel; only the first one is awaited here
	ready := make(chan bool)

	c.wg.Add(1)
	go func(ready chan bool) {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.CommandsTopic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			ready = make(chan bool)
		}
	}(ready)

	timeout := c.config.ReadyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		c.logger.Info("Kafka consumer ready")
	case <-c.ctx.Done():
		c.wg.Wait()
		return c.ctx.Err()
	case <-timer.C:
		c.cancel()
		c.wg.Wait()
		if err := c.consumerGroup.Close(); err != nil {
			c.logger.Warn("failed to close consumer group", "error", err)
		}
		return fmt.Errorf("consumer not ready after %s", timeout)
	}

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// DecodeCommand parses and validates a command message
func DecodeCommand(data []byte) (domain.Command, error) {
	var cmd domain.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("decoding command: %w", err)
	}
	if cmd.Type == "" || cmd.MatchID == "" || cmd.PIN == "" {
		return cmd, domain.ErrInvalidRequest
	}
	return cmd, nil
}

// process applies one message. Domain rejections are final; anything else
// is retried up to the configured number of attempts.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) {
	cmd, err := DecodeCommand(message.Value)
	if err != nil {
		c.logger.Warn("dropping invalid command",
			"error", err,
			"offset", message.Offset,
			"partition", message.Partition,
		)
		return
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		err = c.handle(ctx, cmd)
		if err == nil {
			c.logger.Debug("applied command", "type", cmd.Type, "match_id", cmd.MatchID)
			return
		}
		if domain.KindOf(err) != domain.KindInternal {
			c.logger.Warn("command rejected",
				"type", cmd.Type,
				"match_id", cmd.MatchID,
				"error", err,
			)
			return
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.config.RetryDelay):
			}
		}
	}
	c.logger.Error("failed to apply command",
		"type", cmd.Type,
		"match_id", cmd.MatchID,
		"attempts", attempts,
		"error", err,
	)
}

func (c *Consumer) handle(ctx context.Context, cmd domain.Command) error {
	timeout := c.config.HandleTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.handler.HandleCommand(ctx, cmd)
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil

		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.consumer.process(session.Context(), message)
			session.MarkMessage(message, "")
		}
	}
}
