package workload

import (
	"fmt"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/rcu"
)

// Store is the vector under test, backed by either cell variant.
type Store interface {
	// Snapshot returns a private copy of the current vector.
	Snapshot() []int
	// SnapshotVersion is Snapshot plus the generation it was copied from.
	SnapshotVersion() ([]int, uint64)
	// Install attempts to publish next; false means another writer won.
	Install(next []int) (uint64, bool)
	// Reader returns a read-only handle to the vector.
	Reader() rcu.Reader[[]int]
	Stats() rcu.Stats
	Variant() string
}

// NewStore builds a Store for the configured variant.
func NewStore(variant string, init []int, opts ...rcu.Option[[]int]) (Store, error) {
	opts = append([]rcu.Option[[]int]{rcu.WithClone(rcu.CloneSlice[[]int])}, opts...)
	switch variant {
	case config.VariantGate, "":
		return &gateStore{cell: rcu.New(init, opts...)}, nil
	case config.VariantGuard:
		return &guardStore{cell: rcu.NewGuarded(init, opts...)}, nil
	default:
		return nil, fmt.Errorf("unknown cell variant %q", variant)
	}
}

type gateStore struct {
	cell *rcu.Cell[[]int]
}

func (s *gateStore) Snapshot() []int                   { return s.cell.Read() }
func (s *gateStore) SnapshotVersion() ([]int, uint64)  { return s.cell.ReadVersion() }
func (s *gateStore) Install(next []int) (uint64, bool) { return s.cell.Install(next) }
func (s *gateStore) Reader() rcu.Reader[[]int]         { return s.cell.Subscribe() }
func (s *gateStore) Stats() rcu.Stats                  { return s.cell.Stats() }
func (s *gateStore) Variant() string                   { return config.VariantGate }

type guardStore struct {
	cell *rcu.Guarded[[]int]
}

func (s *guardStore) Snapshot() []int { return s.cell.Load() }

func (s *guardStore) SnapshotVersion() ([]int, uint64) {
	g := s.cell.Read()
	defer g.Release()
	return g.Clone(), g.Generation()
}

func (s *guardStore) Install(next []int) (uint64, bool) { return s.cell.Install(next) }
func (s *guardStore) Reader() rcu.Reader[[]int]         { return guardReader{cell: s.cell} }
func (s *guardStore) Stats() rcu.Stats                  { return s.cell.Stats() }
func (s *guardStore) Variant() string                   { return config.VariantGuard }

// guardReader narrows a Guarded cell to the copy-returning read.
type guardReader struct {
	cell *rcu.Guarded[[]int]
}

func (r guardReader) Read() []int { return r.cell.Load() }
