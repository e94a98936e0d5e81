package liveness

import (
	"context"
	"log"
	"sort"
	"time"
)

// ActiveSetSource yields the ids of currently active buses. The tracking
// service implements it on top of the same Classify function the snapshot
// endpoint uses, so the timer path and the push path can never diverge.
type ActiveSetSource interface {
	ActiveBusIDs(ctx context.Context, now time.Time) ([]string, error)
}

// Publisher receives the new active set whenever it changes between ticks.
type Publisher interface {
	PublishLivenessChanged(activeBusIDs []string)
}

// Monitor re-evaluates the active set on a fixed interval, independent of
// incoming position reports. A bus that stops reporting transitions to
// inactive within one interval even though no write ever arrives.
type Monitor struct {
	source    ActiveSetSource
	publisher Publisher
	interval  time.Duration

	previous []string
}

func NewMonitor(source ActiveSetSource, publisher Publisher, interval time.Duration) *Monitor {
	return &Monitor{
		source:    source,
		publisher: publisher,
		interval:  interval,
	}
}

// Run blocks until the context is canceled. A missed or failed tick only
// delays the next re-evaluation; there is no hard deadline.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, time.Now())
		}
	}
}

func (m *Monitor) tick(ctx context.Context, now time.Time) {
	active, err := m.source.ActiveBusIDs(ctx, now)
	if err != nil {
		log.Printf("liveness check failed: %v", err)
		return
	}

	sort.Strings(active)
	if equalStrings(active, m.previous) {
		return
	}

	m.previous = active
	m.publisher.PublishLivenessChanged(active)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
