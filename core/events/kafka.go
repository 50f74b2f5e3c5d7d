// Copyright 2026 dynrest.tech - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dynrest.tech
//

// Package events publishes committed write operations to a Kafka topic.
package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dynrest-tech/dynrest/core"
	"github.com/dynrest-tech/dynrest/core/logger"
)

// KafkaNotifier implements core.Notifier on top of a Kafka writer. One
// message is produced per committed write, keyed by database and entity so
// that per-entity ordering is preserved across partitions.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier creates a notifier producing to the given topic
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// Notify produces one message for a committed write operation
func (n *KafkaNotifier) Notify(database, entity string, operation core.Operation, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(database + "/" + entity),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(operation)},
		},
	})
	if err != nil {
		logger.Default().WithError(err).Errorf("cannot produce notification for %s/%s", database, entity)
	}
	return err
}

// Close flushes and closes the underlying writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
