package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/config"
)

// Broadcaster delivers a decoded event to the subscribers of its chat.
type Broadcaster interface {
	Broadcast(chatID, event string, payload json.RawMessage)
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg *config.Config) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: r}
}

// Run reads events until ctx is cancelled, handing each to the broadcaster.
func (c *Consumer) Run(ctx context.Context, b Broadcaster) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("kafka read")
			time.Sleep(time.Second)
			continue
		}

		ev, err := DecodeEvent(m.Value)
		if err != nil {
			log.Error().Err(err).Msg("drop malformed event")
			continue
		}
		b.Broadcast(ev.ChatID, ev.Name, ev.Payload)
	}
}

// DecodeEvent parses one wire envelope, rejecting frames without a chat id
// or event name.
func DecodeEvent(value []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return nil, err
	}
	if ev.ChatID == "" || ev.Name == "" {
		return nil, errMalformedEvent
	}
	return &ev, nil
}

var errMalformedEvent = errors.New("event missing chatId or name")

func (c *Consumer) Close() error { return c.reader.Close() }
