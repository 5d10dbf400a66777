package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingHandler struct {
	mu       sync.Mutex
	commands []domain.Command
	errs     []error
}

func (h *recordingHandler) HandleCommand(_ context.Context, cmd domain.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
	if len(h.errs) > 0 {
		err := h.errs[0]
		h.errs = h.errs[1:]
		return err
	}
	return nil
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newTestConsumer(handler CommandHandler) *Consumer {
	return &Consumer{
		config: &config.KafkaConfig{
			CommandsTopic: "match-commands",
			RetryAttempts: 3,
			RetryDelay:    time.Millisecond,
			HandleTimeout: time.Second,
		},
		handler: handler,
		logger:  discardLogger(),
	}
}

// stubGroup stands in for a broker connection. With setup unset, Consume
// fails without ever starting a session.
type stubGroup struct {
	sarama.ConsumerGroup
	setup   bool
	closed  chan struct{}
	errs    chan error
	mu      sync.Mutex
	consume int
}

func newStubGroup(setup bool) *stubGroup {
	return &stubGroup{setup: setup, closed: make(chan struct{}), errs: make(chan error)}
}

func (g *stubGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	g.mu.Lock()
	g.consume++
	g.mu.Unlock()
	if !g.setup {
		select {
		case <-ctx.Done():
		case <-time.After(time.Millisecond):
		}
		return errors.New("brokers unreachable")
	}
	if err := handler.Setup(nil); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (g *stubGroup) Errors() <-chan error { return g.errs }

func (g *stubGroup) Close() error {
	close(g.closed)
	return nil
}

func (g *stubGroup) consumeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consume
}

func startableConsumer(group sarama.ConsumerGroup, readyTimeout time.Duration) *Consumer {
	consumer := newTestConsumer(&recordingHandler{})
	consumer.config.ReadyTimeout = readyTimeout
	consumer.consumerGroup = group
	consumer.ctx, consumer.cancel = context.WithCancel(context.Background())
	return consumer
}

func TestStartWaitsForFirstSession(t *testing.T) {
	group := newStubGroup(true)
	consumer := startableConsumer(group, time.Second)

	require.NoError(t, consumer.Start())
	require.NoError(t, consumer.Stop())

	assert.Equal(t, 1, group.consumeCalls())
	select {
	case <-group.closed:
	default:
		t.Fatal("consumer group not closed on stop")
	}
}

func TestStartGivesUpWhenNoSessionStarts(t *testing.T) {
	group := newStubGroup(false)
	consumer := startableConsumer(group, 50*time.Millisecond)

	err := consumer.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")

	assert.GreaterOrEqual(t, group.consumeCalls(), 1)
	select {
	case <-group.closed:
	default:
		t.Fatal("consumer group not closed after failed start")
	}
}

func message(offset int64, v any) *sarama.ConsumerMessage {
	var data []byte
	switch val := v.(type) {
	case string:
		data = []byte(val)
	default:
		data, _ = json.Marshal(val)
	}
	return &sarama.ConsumerMessage{Topic: "match-commands", Offset: offset, Value: data}
}

func TestConsumeClaimAppliesCommandsInOrder(t *testing.T) {
	handler := &recordingHandler{}
	consumer := newTestConsumer(handler)
	gh := &consumerGroupHandler{consumer: consumer, ready: make(chan bool)}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
	claim.messages <- message(1, domain.Command{Type: domain.CommandStart, MatchID: "m1", PIN: "1111"})
	claim.messages <- message(2, "{broken")
	claim.messages <- message(3, domain.Command{Type: domain.CommandGoal, MatchID: "m1"})
	claim.messages <- message(4, domain.Command{Type: domain.CommandPause, MatchID: "m1", PIN: "1111"})
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, gh.ConsumeClaim(session, claim))

	assert.Equal(t, []int64{1, 2, 3, 4}, session.marked)
	require.Len(t, handler.commands, 2)
	assert.Equal(t, domain.CommandStart, handler.commands[0].Type)
	assert.Equal(t, domain.CommandPause, handler.commands[1].Type)
}

func TestProcessRetriesInternalErrors(t *testing.T) {
	handler := &recordingHandler{errs: []error{errors.New("connection reset"), errors.New("connection reset")}}
	consumer := newTestConsumer(handler)

	consumer.process(context.Background(), message(1, domain.Command{Type: domain.CommandStart, MatchID: "m1", PIN: "1111"}))
	assert.Len(t, handler.commands, 3)
}

func TestProcessDoesNotRetryRejections(t *testing.T) {
	handler := &recordingHandler{errs: []error{domain.ErrNotLive}}
	consumer := newTestConsumer(handler)

	consumer.process(context.Background(), message(1, domain.Command{Type: domain.CommandPause, MatchID: "m1", PIN: "1111"}))
	assert.Len(t, handler.commands, 1)
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"substitute","match_id":"m1","pin":"1111","player_id":"p1","player_in_id":"p2"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.CommandSubstitute, cmd.Type)
	assert.Equal(t, "p2", cmd.PlayerInID)

	_, err = DecodeCommand([]byte(`{"type":"start"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = DecodeCommand([]byte(`nope`))
	assert.Error(t, err)
}

func TestPublishMatchEvents(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewPublisherWithProducer(producer, "match-events", discardLogger())

	match := domain.Match{ID: "m1", PublicCode: "ABC234", Status: domain.StatusLive, HomeScore: 1}
	events := []domain.MatchEvent{
		{ID: "e1", MatchID: "m1", Type: domain.EventGoal, PlayerID: "p1", RelatedPlayerID: "p2", Quarter: 1},
		{ID: "e2", MatchID: "m1", Type: domain.EventAssist, PlayerID: "p2", RelatedPlayerID: "p1", Quarter: 1},
	}
	for _, want := range events {
		want := want
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var msg EventMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			if msg.Event.ID != want.ID || msg.PublicCode != "ABC234" || msg.HomeScore != 1 {
				return errors.New("unexpected event message")
			}
			return nil
		})
	}

	require.NoError(t, publisher.PublishMatchEvents(context.Background(), match, events))
	require.NoError(t, publisher.PublishMatchEvents(context.Background(), match, nil))
	require.NoError(t, publisher.Close())
}

func TestPublishMatchEventsFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewPublisherWithProducer(producer, "match-events", discardLogger())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := publisher.PublishMatchEvents(context.Background(), domain.Match{ID: "m1"}, []domain.MatchEvent{{ID: "e1", Type: domain.EventQuarterStart}})
	assert.Error(t, err)
	require.NoError(t, publisher.Close())
}
