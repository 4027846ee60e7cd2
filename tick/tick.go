// Package tick provides a periodic clock that is polled from a control loop
// instead of delivering callbacks.
package tick

import "time"

// Ticker reports when its period has elapsed. It fires at most once per
// poll and re-bases on the poll time, so a late poll delays the following
// ticks instead of bursting to catch up.
type Ticker struct {
	period  time.Duration
	next    time.Time
	running bool
}

// New returns a stopped ticker.
func New(period time.Duration) *Ticker {
	return &Ticker{period: period}
}

// Start (re)starts the period at now.
func (t *Ticker) Start(now time.Time) {
	t.next = now.Add(t.period)
	t.running = true
}

// Stop halts the ticker until the next Start.
func (t *Ticker) Stop() {
	t.running = false
}

// SetPeriod changes the period. It takes effect on the next Start or tick.
func (t *Ticker) SetPeriod(d time.Duration) {
	t.period = d
}

// Period returns the current period.
func (t *Ticker) Period() time.Duration {
	return t.period
}

// Running reports whether the ticker is started.
func (t *Ticker) Running() bool {
	return t.running
}

// Due reports whether a tick elapsed at now and schedules the next one.
func (t *Ticker) Due(now time.Time) bool {
	if !t.running || now.Before(t.next) {
		return false
	}
	t.next = now.Add(t.period)
	return true
}
