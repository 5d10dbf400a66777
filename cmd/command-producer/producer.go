package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/youth-scoreboard/internal/domain"
	"github.com/youth-scoreboard/internal/kafka"
)

// validate runs a command through the consumer's decoder so the producer
// rejects what the server would drop
func validate(cmd domain.Command) (domain.Command, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return cmd, err
	}
	out, err := kafka.DecodeCommand(data)
	if err != nil {
		return cmd, fmt.Errorf("command needs type, match and pin: %w", err)
	}
	return out, nil
}

// readCommands parses newline-delimited JSON commands. Blank lines and
// lines starting with # are skipped.
func readCommands(r io.Reader) ([]domain.Command, error) {
	var cmds []domain.Command
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cmd, err := kafka.DecodeCommand([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cmds = append(cmds, cmd)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading commands: %w", err)
	}
	return cmds, nil
}

// publish sends cmds in order, keyed by match so one match's commands stay
// on one partition, then closes the producer and reports the outcome
func publish(producer sarama.AsyncProducer, topic string, cmds []domain.Command, interval time.Duration, stop <-chan struct{}) (sent, failed int64) {
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

send:
	for i, cmd := range cmds {
		data, err := json.Marshal(cmd)
		if err != nil {
			atomic.AddInt64(&errorCount, 1)
			continue
		}
		msg := &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(cmd.MatchID),
			Value: sarama.ByteEncoder(data),
			Headers: []sarama.RecordHeader{
				{Key: []byte("command_type"), Value: []byte(cmd.Type)},
			},
		}
		select {
		case producer.Input() <- msg:
		case <-stop:
			break send
		}

		if interval > 0 && i < len(cmds)-1 {
			select {
			case <-time.After(interval):
			case <-stop:
				break send
			}
		}
	}

	producer.AsyncClose()
	wg.Wait()
	return atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount)
}
