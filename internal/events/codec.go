package events

import (
	"errors"
	"fmt"
	"time"
)

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/types"
)

var ErrCorruptEvent = errors.New("events: corrupt update event")

// Encode serialises ev as a protobuf Struct so consumers need no generated
// schema to decode it.
func Encode(ev types.UpdateEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"worker":     ev.Worker,
		"generation": float64(ev.Generation),
		"mean":       ev.Mean,
		"len":        ev.Len,
		"variant":    ev.Variant,
		"at":         ev.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("build event struct: %w", err)
	}
	return proto.Marshal(s)
}

// Decode is the inverse of Encode.
func Decode(b []byte) (types.UpdateEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return types.UpdateEvent{}, fmt.Errorf("%w: %v", ErrCorruptEvent, err)
	}
	f := s.GetFields()
	at, err := time.Parse(time.RFC3339Nano, f["at"].GetStringValue())
	if err != nil {
		return types.UpdateEvent{}, fmt.Errorf("%w: at: %v", ErrCorruptEvent, err)
	}
	return types.UpdateEvent{
		Worker:     int(f["worker"].GetNumberValue()),
		Generation: uint64(f["generation"].GetNumberValue()),
		Mean:       f["mean"].GetNumberValue(),
		Len:        int(f["len"].GetNumberValue()),
		Variant:    f["variant"].GetStringValue(),
		At:         at,
	}, nil
}
