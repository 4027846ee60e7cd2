// Package idle implements the inactivity countdown that escalates the
// indicator and finally forces the low-power state.
package idle

import (
	"errors"
	"time"

	"i4.energy/across/serbridge/indicator"
	"i4.energy/across/serbridge/tick"
)

// DefaultDivision is the number of clock ticks the timeout is split into.
const DefaultDivision = 10

// ErrInvalidDivision is returned by New for a division below 2.
var ErrInvalidDivision = errors.New("idle: division must be at least 2")

// Phase is the countdown progress.
type Phase int

const (
	Active       Phase = iota // count below division-1
	Warning                   // count == division-1
	FinalWarning              // count == division
	Expired                   // count above division
)

func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case Warning:
		return "warning"
	case FinalWarning:
		return "final-warning"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Indicator returns the indicator state shown in phase p.
func (p Phase) Indicator() indicator.State {
	switch p {
	case Warning:
		return indicator.Double
	case FinalWarning:
		return indicator.Triple
	case Expired:
		return indicator.Off
	default:
		return indicator.Single
	}
}

// Timer counts clock ticks since the last activity. It is not safe for
// concurrent use; the bridge loop owns it.
type Timer struct {
	division int
	count    int
	clock    *tick.Ticker
}

// New returns a stopped timer that expires after timeout split into
// division ticks.
func New(timeout time.Duration, division int) (*Timer, error) {
	if division < 2 {
		return nil, ErrInvalidDivision
	}
	return &Timer{
		division: division,
		clock:    tick.New(timeout / time.Duration(division)),
	}, nil
}

// SetTimeout changes the total timeout. It takes effect on the next
// Restart.
func (t *Timer) SetTimeout(timeout time.Duration) {
	t.clock.SetPeriod(timeout / time.Duration(t.division))
}

// Period returns the clock period.
func (t *Timer) Period() time.Duration {
	return t.clock.Period()
}

// Count returns the ticks since the last restart.
func (t *Timer) Count() int {
	return t.count
}

// Division returns the number of ticks per timeout.
func (t *Timer) Division() int {
	return t.division
}

// Phase returns the phase of the current count.
func (t *Timer) Phase() Phase {
	switch {
	case t.count > t.division:
		return Expired
	case t.count == t.division:
		return FinalWarning
	case t.count == t.division-1:
		return Warning
	default:
		return Active
	}
}

// Restart resets the count and restarts the clock at now.
func (t *Timer) Restart(now time.Time) {
	t.count = 0
	t.clock.Start(now)
}

// Tick advances the countdown by one clock tick. Once expired the clock is
// stopped until the next Restart.
func (t *Timer) Tick() Phase {
	t.count++
	p := t.Phase()
	if p == Expired {
		t.clock.Stop()
	}
	return p
}

// Update ticks the countdown if the clock is due at now. fired reports
// whether a tick happened.
func (t *Timer) Update(now time.Time) (p Phase, fired bool) {
	if !t.clock.Due(now) {
		return t.Phase(), false
	}
	return t.Tick(), true
}
