package checkpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

import (
	"github.com/cockroachdb/pebble"
)

var (
	keyLatest = []byte("rcu/latest")

	ErrCorruptCheckpoint = errors.New("checkpoint: corrupt record")
)

// Record is the persisted copy of the vector.
type Record struct {
	Values  []int
	SavedAt time.Time
}

// Store keeps the most recent vector in pebble so a restarted harness can
// resume from it.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save overwrites the checkpoint with values.
func (s *Store) Save(values []int, at time.Time) error {
	return s.db.Set(keyLatest, encodeRecord(Record{Values: values, SavedAt: at}), pebble.Sync)
}

// Load returns the last saved record; ok is false when nothing was saved yet.
func (s *Store) Load() (rec Record, ok bool, err error) {
	b, closer, err := s.db.Get(keyLatest)
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	defer closer.Close()

	rec, err = decodeRecord(b)
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// binary encoding: [savedAt:8][count:uvarint][value:varint]...
func encodeRecord(r Record) []byte {
	buf := make([]byte, 8, 8+binary.MaxVarintLen64*(len(r.Values)+1))
	binary.BigEndian.PutUint64(buf, uint64(r.SavedAt.UnixNano()))
	buf = binary.AppendUvarint(buf, uint64(len(r.Values)))
	for _, v := range r.Values {
		buf = binary.AppendVarint(buf, int64(v))
	}
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 9 {
		return Record{}, ErrCorruptCheckpoint
	}
	at := time.Unix(0, int64(binary.BigEndian.Uint64(b[:8])))
	b = b[8:]

	n, k := binary.Uvarint(b)
	if k <= 0 || n > uint64(len(b)) {
		return Record{}, ErrCorruptCheckpoint
	}
	b = b[k:]

	values := make([]int, 0, n)
	for i := uint64(0); i < n; i++ {
		v, k := binary.Varint(b)
		if k <= 0 {
			return Record{}, ErrCorruptCheckpoint
		}
		values = append(values, int(v))
		b = b[k:]
	}
	if len(b) != 0 {
		return Record{}, ErrCorruptCheckpoint
	}
	return Record{Values: values, SavedAt: at}, nil
}
