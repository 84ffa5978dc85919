package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink publishes every record to a Kafka topic, keyed by record type so
// per-type consumers keep partition ordering. Delivery is asynchronous: the
// feed fans out under the exchange's write lock, so Publish must never wait
// on the broker. Failed deliveries are logged and dropped; the feed retains
// history for replay.
type KafkaSink struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

func NewKafkaSink(brokers []string, topic string, log *zap.SugaredLogger) *KafkaSink {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &KafkaSink{log: log}
	s.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				s.log.Warnw("kafka_publish_failed", "messages", len(messages), "err", err)
			}
		},
	}
	return s
}

// Publish hands the record to the writer's background batcher. With an async
// writer this never blocks on the broker; the context only covers the local
// enqueue.
func (s *KafkaSink) Publish(rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(rec.Type),
		Value: value,
	})
}

// Close flushes pending batches and releases the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
