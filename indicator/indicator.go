// Package indicator renders the bridge status as a blink pattern on a
// single on/off output.
package indicator

import (
	"time"

	"i4.energy/across/serbridge/tick"
)

// DefaultPeriod is the length of one pattern tick.
const DefaultPeriod = 10 * time.Millisecond

type State int

const (
	Off State = iota
	Single
	Double
	Triple
	On
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case Single:
		return "single"
	case Double:
		return "double"
	case Triple:
		return "triple"
	case On:
		return "on"
	default:
		return "unknown"
	}
}

// Output drives the physical indicator.
type Output interface {
	Set(on bool)
}

// OutputFunc adapts a function to the Output interface.
type OutputFunc func(on bool)

func (f OutputFunc) Set(on bool) { f(on) }

type pattern struct {
	period int
	lit    []int
}

// The lit positions are absolute cycle numbers within one period.
var patterns = map[State]pattern{
	Single: {period: 150, lit: []int{1}},
	Double: {period: 170, lit: []int{1, 20}},
	Triple: {period: 190, lit: []int{1, 21, 41}},
}

// Step advances the cycle counter by one tick in state s. It returns the
// output level and the new cycle counter.
func Step(s State, cycle int) (on bool, next int) {
	cycle++
	switch s {
	case On:
		return true, 0
	case Single, Double, Triple:
		p := patterns[s]
		if cycle >= p.period {
			return false, 0
		}
		for _, l := range p.lit {
			if cycle == l {
				return true, cycle
			}
		}
		return false, cycle
	default:
		return false, 0
	}
}

// Machine is the indicator state machine. It is not safe for concurrent
// use; the bridge loop owns it.
type Machine struct {
	state State
	cycle int
	lit   bool
	out   Output
	tick  *tick.Ticker
}

// New returns a machine in state Off ticking every period.
func New(out Output, period time.Duration) *Machine {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Machine{out: out, tick: tick.New(period)}
}

// Start starts the pattern clock.
func (m *Machine) Start(now time.Time) {
	m.tick.Start(now)
}

// Set selects the displayed state. Entering a different state restarts
// its pattern.
func (m *Machine) Set(s State) {
	if s != m.state {
		m.cycle = 0
	}
	m.state = s
}

// State returns the displayed state.
func (m *Machine) State() State {
	return m.state
}

// Lit returns the last rendered level.
func (m *Machine) Lit() bool {
	return m.lit
}

// Update renders a tick if the pattern clock is due at now.
func (m *Machine) Update(now time.Time) {
	if m.tick.Due(now) {
		m.Tick()
	}
}

// Tick advances the pattern by one tick and redraws the output.
func (m *Machine) Tick() bool {
	m.lit, m.cycle = Step(m.state, m.cycle)
	m.render()
	return m.lit
}

// Blank turns the output off immediately, without changing the state.
func (m *Machine) Blank() {
	m.lit = false
	m.render()
}

func (m *Machine) render() {
	if m.out != nil {
		m.out.Set(m.lit)
	}
}
