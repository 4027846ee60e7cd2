package bridge

import "time"

type press int

const (
	pressNone press = iota
	pressShort
	pressLong
)

// pressDetector classifies presses of the control input on release.
type pressDetector struct {
	threshold time.Duration
	held      bool
	since     time.Time
}

func (d *pressDetector) poll(pressed bool, now time.Time) press {
	if pressed {
		if !d.held {
			d.held = true
			d.since = now
		}
		return pressNone
	}
	if !d.held {
		return pressNone
	}
	d.held = false
	if now.Sub(d.since) >= d.threshold {
		return pressLong
	}
	return pressShort
}
