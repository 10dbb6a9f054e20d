package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController paces ticks.
type Mode int

const (
	// RealTime fires one tick per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated fires ticks back to back, yielding only for cancellation.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	}
	return "unknown"
}

// ParseMode maps "realtime" or "accelerated" to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "realtime", "real-time", "":
		return RealTime, true
	case "accelerated", "fast":
		return Accelerated, true
	}
	return RealTime, false
}

// TimeController drives a bounded run of discrete ticks and notifies
// registered listeners on each one. Cancellation is cooperative: it is
// observed between ticks, never while a listener runs.
type TimeController struct {
	mu       sync.RWMutex
	Interval time.Duration
	Mode     Mode

	// fired counts ticks delivered in the current run.
	fired int

	listeners []func(tick int)
}

// NewTimeController constructs a controller.
func NewTimeController(interval time.Duration, mode Mode) *TimeController {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &TimeController{
		Interval: interval,
		Mode:     mode,
	}
}

// Fired returns the number of ticks delivered so far in the current run.
func (tc *TimeController) Fired() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.fired
}

// AddListener registers a callback invoked on every tick with the zero-based
// tick index. Listeners must be added before Start.
func (tc *TimeController) AddListener(fn func(tick int)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Start runs up to maxTicks ticks in a separate goroutine. A non-positive
// maxTicks runs until ctx is cancelled. The returned channel is closed when
// the run ends.
func (tc *TimeController) Start(ctx context.Context, maxTicks int) <-chan struct{} {
	done := make(chan struct{})

	tc.mu.Lock()
	tc.fired = 0
	listeners := append([]func(int){}, tc.listeners...)
	tc.mu.Unlock()

	go func() {
		defer close(done)

		var tickC <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Interval)
			defer ticker.Stop()
			tickC = ticker.C
		}

		for tick := 0; maxTicks <= 0 || tick < maxTicks; tick++ {
			if tickC != nil {
				select {
				case <-ctx.Done():
					return
				case <-tickC:
				}
			} else if ctx.Err() != nil {
				return
			}

			for _, fn := range listeners {
				fn(tick)
			}

			tc.mu.Lock()
			tc.fired = tick + 1
			tc.mu.Unlock()
		}
	}()
	return done
}
