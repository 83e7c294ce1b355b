package rcu

import (
	"runtime"
	"time"
)

const (
	yieldRounds = 64
	maxSleep    = 64 * time.Microsecond
)

// backoff paces the two wait loops of the gate protocol: readers waiting for
// the gate to clear and a writer waiting for readers to drain. It yields the
// processor first and then sleeps for exponentially growing periods.
type backoff struct {
	rounds int
	sleep  time.Duration
}

func (b *backoff) wait() {
	if b.rounds < yieldRounds {
		b.rounds++
		runtime.Gosched()
		return
	}
	if b.sleep == 0 {
		b.sleep = time.Microsecond
	}
	time.Sleep(b.sleep)
	if b.sleep < maxSleep {
		b.sleep *= 2
	}
}
