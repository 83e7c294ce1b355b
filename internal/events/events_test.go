package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

import (
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/segmentio/kafka-go"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/types"
	"github.com/nanjiek/pixiu-rcu/internal/util"
)

func sampleEvent() types.UpdateEvent {
	return types.UpdateEvent{
		Worker:     4,
		Generation: 42,
		Mean:       -3.25,
		Len:        9,
		Variant:    "guard",
		At:         time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC),
	}
}

func TestEncodeDecode(t *testing.T) {
	ev := sampleEvent()
	b, err := Encode(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.At.Equal(ev.At) {
		t.Fatalf("decoded at %v, want %v", got.At, ev.At)
	}
	got.At = ev.At
	if got != ev {
		t.Fatalf("decoded %+v, want %+v", got, ev)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0xff, 0xff}); !errors.Is(err, ErrCorruptEvent) {
		t.Fatalf("err = %v, want ErrCorruptEvent", err)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSinkPublish(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}

	ev := sampleEvent()
	if err := sink.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != util.EventKey("guard", 4) {
		t.Fatalf("key = %s", w.msgs[0].Key)
	}
	got, err := Decode(w.msgs[0].Value)
	if err != nil || got.Generation != 42 {
		t.Fatalf("payload decode = %+v, %v", got, err)
	}

	w.err = errors.New("broker down")
	if err := sink.Publish(context.Background(), ev); err == nil {
		t.Fatalf("expected writer error")
	}
}

func TestSaramaSinkPublish(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		ev, err := Decode(val)
		if err != nil {
			return err
		}
		if ev.Worker != 4 {
			return errors.New("wrong worker")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := &SaramaSink{producer: producer, topic: "rcu-updates"}
	if err := sink.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := sink.Publish(context.Background(), sampleEvent()); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("err = %v, want ErrOutOfBrokers", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
