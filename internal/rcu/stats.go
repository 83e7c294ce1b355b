package rcu

import (
	"sync/atomic"
)

// Stats is a point-in-time view of a cell's write-side counters.
type Stats struct {
	Generation uint64 `json:"generation"`
	Updates    uint64 `json:"updates"`
	LostRaces  uint64 `json:"lostRaces"`
	Reclaimed  uint64 `json:"reclaimed"`
	Discarded  uint64 `json:"discarded"`
}

type counters struct {
	updates   atomic.Uint64
	lost      atomic.Uint64
	reclaimed atomic.Uint64
	discarded atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Updates:   c.updates.Load(),
		LostRaces: c.lost.Load(),
		Reclaimed: c.reclaimed.Load(),
		Discarded: c.discarded.Load(),
	}
}
