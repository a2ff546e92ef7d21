// Package events publishes storefront domain events to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	// OrderPlaced is emitted after checkout
	OrderPlaced = "order.placed"
	// ContactSubmitted is emitted for each accepted contact message
	ContactSubmitted = "contact.submitted"
)

// Publisher sends an event to topic, partitioned by key
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

// Kafka publishes JSON encoded events through a shared kafka-go writer
type Kafka struct {
	writer *kafka.Writer
	log    logrus.FieldLogger
}

// NewKafka creates a publisher for brokers. The writer is created lazily by
// kafka-go, so no connection is made until the first publish.
func NewKafka(brokers []string, log logrus.FieldLogger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}, nil
}

// PublishEvent implements Publisher
func (k *Kafka) PublishEvent(ctx context.Context, topic, key string, event any) error {
	msg, err := newMessage(topic, key, event)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	k.log.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug("event published")
	return nil
}

// Close flushes pending messages and closes the writer
func (k *Kafka) Close() error {
	return k.writer.Close()
}

func newMessage(topic, key string, event any) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now().UTC(),
	}, nil
}

// Log writes events to the logger instead of a broker. It is used when no
// brokers are configured.
type Log struct {
	log logrus.FieldLogger
}

// NewLog creates a logging publisher
func NewLog(log logrus.FieldLogger) *Log {
	return &Log{log: log}
}

// PublishEvent implements Publisher
func (l *Log) PublishEvent(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	l.log.WithFields(logrus.Fields{
		"topic":   topic,
		"key":     key,
		"payload": string(payload),
	}).Info("event")
	return nil
}

// Close implements Publisher
func (l *Log) Close() error { return nil }
