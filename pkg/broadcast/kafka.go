// Package broadcast publishes filled orders to downstream consumers.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/uhyunpark/matchsim/pkg/history"
	"github.com/uhyunpark/matchsim/pkg/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the payload written for every fill
type Event struct {
	V     int         `json:"v"`
	Type  string      `json:"type"`
	Order model.Order `json:"order"`
}

// KafkaSink writes each filled order to a topic, keyed by client order id
type KafkaSink struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		timeout: 5 * time.Second,
	}
}

func (k *KafkaSink) RecordFilled(o model.Order) error {
	value, err := json.Marshal(Event{V: 1, Type: "order_filled", Order: o})
	if err != nil {
		return fmt.Errorf("failed to marshal fill event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.ClientOrderID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish fill %s: %w", o.ClientOrderID, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

var _ history.Sink = (*KafkaSink)(nil)
