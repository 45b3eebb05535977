// Package kafka carries realtime chat events between the service layer and
// the websocket hub. Messages are keyed by chat id so events for one chat
// stay ordered.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/config"
)

// Event is the wire envelope for one realtime event.
type Event struct {
	Name    string          `json:"event"`
	ChatID  string          `json:"chatId"`
	Payload json.RawMessage `json:"data"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg *config.Config) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.Hash{},
	})
	return &Producer{writer: w}
}

// Publish writes one event. Failures are logged and swallowed: realtime
// delivery is a side channel, never part of the transaction of record.
func (p *Producer) Publish(ctx context.Context, chatID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal event payload")
		return
	}
	value, err := json.Marshal(Event{Name: event, ChatID: chatID, Payload: raw})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}

	msg := kafka.Message{Key: []byte(chatID), Value: value, Time: time.Now()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("event", event).Str("chat", chatID).Msg("kafka publish")
	}
}

func (p *Producer) Close() error { return p.writer.Close() }
