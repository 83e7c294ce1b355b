package checkpoint

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/rcu"
)

// Checkpointer periodically persists whatever a read-only handle returns.
type Checkpointer struct {
	store    *Store
	reader   rcu.Reader[[]int]
	interval time.Duration
	log      *slog.Logger
	last     []int
	saved    bool
}

func NewCheckpointer(store *Store, reader rcu.Reader[[]int], interval time.Duration) *Checkpointer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Checkpointer{
		store:    store,
		reader:   reader,
		interval: interval,
		log:      slog.Default(),
	}
}

// Run saves on every tick until ctx is done, then saves once more.
func (c *Checkpointer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := c.SaveOnce(); err != nil {
				c.log.Warn("final checkpoint failed", "error", err)
			}
			return
		case <-ticker.C:
			if _, err := c.SaveOnce(); err != nil {
				c.log.Warn("checkpoint failed", "error", err)
			}
		}
	}
}

// SaveOnce persists the current value if it changed since the last save.
// Not safe for concurrent use.
func (c *Checkpointer) SaveOnce() (bool, error) {
	v := c.reader.Read()
	if c.saved && slices.Equal(v, c.last) {
		return false, nil
	}
	if err := c.store.Save(v, time.Now()); err != nil {
		return false, err
	}
	c.last, c.saved = v, true
	c.log.Debug("checkpoint saved", "len", len(v))
	return true, nil
}
