package bridge

import (
	"time"

	"i4.energy/across/serbridge/idle"
	"i4.energy/across/serbridge/indicator"
	"i4.energy/across/serbridge/settings"
)

// State is the mutable bridge state: the live record, the idle countdown
// and the indicator. Only the loop goroutine touches it.
type State struct {
	Record    settings.Record
	Idle      *idle.Timer
	Indicator *indicator.Machine
}

// NewState returns the state for rec. The idle timeout is the record's
// sleep timeout. The indicator starts On.
func NewState(rec settings.Record, division int, out indicator.Output, period time.Duration) (*State, error) {
	timer, err := idle.New(sleepTimeout(rec), division)
	if err != nil {
		return nil, err
	}
	ind := indicator.New(out, period)
	ind.Set(indicator.On)
	return &State{Record: rec, Idle: timer, Indicator: ind}, nil
}

// Activity restarts the idle countdown and shows the active pattern.
func (s *State) Activity(now time.Time) {
	s.Idle.Restart(now)
	s.Indicator.Set(indicator.Single)
}

func sleepTimeout(rec settings.Record) time.Duration {
	return time.Duration(rec.SleepTimeout) * time.Second
}
