package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"campaign-escrow/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes escrow events to a single topic, keyed by escrow id so
// every event for one escrow lands on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topic: topic,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.EscrowEvent) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func buildMessage(event domain.EscrowEvent) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.EscrowTransactionID.String()),
		Value: payload,
		Time:  event.OccurredAt.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// LoggingPublisher logs events instead of sending them. Used when no broker
// is configured.
type LoggingPublisher struct {
	log zerolog.Logger
}

func NewLoggingPublisher(log zerolog.Logger) *LoggingPublisher {
	return &LoggingPublisher{log: log}
}

func (p *LoggingPublisher) Publish(_ context.Context, event domain.EscrowEvent) error {
	p.log.Info().
		Str("event_type", event.Type).
		Str("event_id", event.EventID.String()).
		Str("escrow_id", event.EscrowTransactionID.String()).
		Str("contract_id", event.ContractID.String()).
		Str("escrow_status", string(event.EscrowStatus)).
		Str("gateway_event_id", event.GatewayEventID).
		Msg("escrow event")
	return nil
}

func (p *LoggingPublisher) Close() error { return nil }
