package modal

import (
	"fmt"
	"sync"
	"time"
)

// FormatDuration renders an elapsed time as HH:MM:SS. Hours are not wrapped at 24
// and negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Timer ticks the elapsed time since a reservation started. At most one run is
// active: Start stops the previous run first.
type Timer struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	run      *timerRun
}

type timerRun struct {
	stop chan struct{}
	done chan struct{}
}

// NewTimer creates a stopped timer ticking every interval.
func NewTimer(interval time.Duration, now func() time.Time) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Timer{interval: interval, now: now}
}

// Start ticks once immediately and then every interval until stopped.
func (t *Timer) Start(startedAt time.Time, tick func(text string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	tick(FormatDuration(t.now().Sub(startedAt)))

	run := &timerRun{stop: make(chan struct{}), done: make(chan struct{})}
	t.run = run
	go func() {
		defer close(run.done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-run.stop:
				return
			case <-ticker.C:
				select {
				case <-run.stop:
					return
				default:
				}
				tick(FormatDuration(t.now().Sub(startedAt)))
			}
		}
	}()
}

// Stop ends the current run, if any. No tick fires after Stop returns.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether a run is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run != nil
}

func (t *Timer) stopLocked() {
	if t.run == nil {
		return
	}
	close(t.run.stop)
	<-t.run.done
	t.run = nil
}
