package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youth-scoreboard/internal/domain"
)

func testConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	return config
}

func TestReadCommands(t *testing.T) {
	input := `
# kickoff
{"type":"start","match_id":"m1","pin":"1111"}

{"type":"goal","match_id":"m1","pin":"1111","player_id":"p1"}
`
	cmds, err := readCommands(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, domain.CommandStart, cmds[0].Type)
	assert.Equal(t, "p1", cmds[1].PlayerID)

	_, err = readCommands(strings.NewReader(`{"type":"start","match_id":"m1"}`))
	assert.ErrorContains(t, err, "line 1")
}

func TestValidate(t *testing.T) {
	cmd, err := validate(domain.Command{Type: domain.CommandPause, MatchID: "m1", PIN: "1111"})
	require.NoError(t, err)
	assert.Equal(t, domain.CommandPause, cmd.Type)

	_, err = validate(domain.Command{Type: domain.CommandPause, MatchID: "m1"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestPublish(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, testConfig())
	cmds := []domain.Command{
		{Type: domain.CommandStart, MatchID: "m1", PIN: "1111"},
		{Type: domain.CommandPause, MatchID: "m1", PIN: "1111"},
		{Type: domain.CommandResume, MatchID: "m1", PIN: "1111"},
	}
	for _, want := range cmds {
		want := want
		producer.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
			var got domain.Command
			if err := json.Unmarshal(val, &got); err != nil {
				return err
			}
			if got.Type != want.Type {
				return errors.New("commands out of order")
			}
			return nil
		})
	}

	sent, failed := publish(producer, "match-commands", cmds, 0, make(chan struct{}))
	assert.Equal(t, int64(3), sent)
	assert.Zero(t, failed)
}

func TestPublishCountsFailures(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, testConfig())
	producer.ExpectInputAndSucceed()
	producer.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	cmds := []domain.Command{
		{Type: domain.CommandStart, MatchID: "m1", PIN: "1111"},
		{Type: domain.CommandPause, MatchID: "m1", PIN: "1111"},
	}
	sent, failed := publish(producer, "match-commands", cmds, 0, make(chan struct{}))
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(1), failed)
}
