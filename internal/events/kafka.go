package events

import (
	"context"
	"time"
)

import (
	"github.com/segmentio/kafka-go"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/types"
	"github.com/nanjiek/pixiu-rcu/internal/util"
)

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes update events through segmentio/kafka-go.
type KafkaSink struct {
	writer messageWriter
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
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, ev types.UpdateEvent) error {
	value, err := Encode(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(util.EventKey(ev.Variant, ev.Worker)),
		Value: value,
	})
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
