package events

import (
	"context"
)

import (
	"github.com/IBM/sarama"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/types"
	"github.com/nanjiek/pixiu-rcu/internal/util"
)

// SaramaSink publishes update events through an IBM/sarama sync producer.
type SaramaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSaramaSink(brokers []string, topic string) (*SaramaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &SaramaSink{producer: producer, topic: topic}, nil
}

func (s *SaramaSink) Name() string { return "sarama" }

// Publish ignores ctx; the sync producer bounds the call by its own timeouts.
func (s *SaramaSink) Publish(_ context.Context, ev types.UpdateEvent) error {
	value, err := Encode(ev)
	if err != nil {
		return err
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(util.EventKey(ev.Variant, ev.Worker)),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (s *SaramaSink) Close() error {
	return s.producer.Close()
}
