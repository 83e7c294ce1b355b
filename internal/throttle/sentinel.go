package throttle

import (
	"errors"
	"fmt"
	"sync"
)

import (
	sentinel "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/base"
	"github.com/alibaba/sentinel-golang/core/flow"
)

// ResourcePublish is the sentinel resource guarding update event delivery.
const ResourcePublish = "pixiu-rcu:publish"

var (
	initOnce sync.Once
	initErr  error
)

// SentinelLimiter rejects calls beyond a QPS threshold using sentinel flow
// control. It satisfies workload.Limiter.
type SentinelLimiter struct {
	resource string
}

// NewSentinelLimiter initialises sentinel once per process and loads a
// reject-on-excess flow rule for resource.
func NewSentinelLimiter(resource string, qps float64) (*SentinelLimiter, error) {
	if qps <= 0 {
		return nil, errors.New("throttle: qps must be positive")
	}
	initOnce.Do(func() {
		initErr = sentinel.InitDefault()
	})
	if initErr != nil {
		return nil, fmt.Errorf("init sentinel: %w", initErr)
	}

	_, err := flow.LoadRules([]*flow.Rule{
		{
			Resource:               resource,
			TokenCalculateStrategy: flow.Direct,
			ControlBehavior:        flow.Reject,
			Threshold:              qps,
			StatIntervalInMs:       1000,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load flow rule for %s: %w", resource, err)
	}
	return &SentinelLimiter{resource: resource}, nil
}

// Allow reports whether one more call fits under the threshold.
func (l *SentinelLimiter) Allow() bool {
	e, b := sentinel.Entry(l.resource, sentinel.WithTrafficType(base.Outbound))
	if b != nil {
		return false
	}
	e.Exit()
	return true
}
