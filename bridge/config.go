package bridge

import (
	"log/slog"
	"net"
	"time"

	"i4.energy/across/serbridge/at"
	"i4.energy/across/serbridge/device"
	"i4.energy/across/serbridge/idle"
	"i4.energy/across/serbridge/indicator"
	"i4.energy/across/serbridge/settings"
)

// Config holds everything a Loop needs. Build it with NewConfigBuilder.
type Config struct {
	listener  net.Listener
	device    device.Port
	store     settings.Store
	record    *settings.Record
	matcher   at.Matcher
	codeword  bool
	sleeper   Sleeper
	restarter Restarter
	logger    *slog.Logger

	idleDivision    int
	indicatorPeriod time.Duration
	restartDelay    time.Duration
	failsafeDelay   time.Duration
	sleepDelay      time.Duration
	longPress       time.Duration
	writeTimeout    time.Duration
	bufferSize      int
	maxBurst        int
	now             func() time.Time
}

// Defaults applied by Build.
const (
	DefaultRestartDelay  = 2 * time.Second
	DefaultFailsafeDelay = time.Second
	DefaultSleepDelay    = 500 * time.Millisecond
	DefaultLongPress     = 5 * time.Second
	DefaultWriteTimeout  = 5 * time.Second
	DefaultBufferSize    = 1024
	DefaultMaxBurst      = 8
)

func (c *Config) validate() error {
	if c.listener == nil {
		return ErrNoListener
	}
	if c.device == nil {
		return ErrNoDevice
	}
	if c.store == nil {
		return ErrNoStore
	}
	if c.idleDivision < 2 {
		return idle.ErrInvalidDivision
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.matcher == nil {
		c.matcher = at.SubstringMatcher{}
	}
	if c.sleeper == nil {
		c.sleeper = SleeperFunc(func() {})
	}
	if c.restarter == nil {
		c.restarter = RestarterFunc(func() {})
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.idleDivision == 0 {
		c.idleDivision = idle.DefaultDivision
	}
	if c.indicatorPeriod == 0 {
		c.indicatorPeriod = indicator.DefaultPeriod
	}
	if c.restartDelay == 0 {
		c.restartDelay = DefaultRestartDelay
	}
	if c.failsafeDelay == 0 {
		c.failsafeDelay = DefaultFailsafeDelay
	}
	if c.sleepDelay == 0 {
		c.sleepDelay = DefaultSleepDelay
	}
	if c.longPress == 0 {
		c.longPress = DefaultLongPress
	}
	if c.writeTimeout == 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
	if c.bufferSize == 0 {
		c.bufferSize = DefaultBufferSize
	}
	if c.maxBurst == 0 {
		c.maxBurst = DefaultMaxBurst
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// ConfigBuilder builds a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: Config{codeword: true}}
}

// WithListener sets the listener clients are accepted from. Run closes it
// when it returns.
func (b *ConfigBuilder) WithListener(l net.Listener) *ConfigBuilder {
	b.config.listener = l
	return b
}

// WithDevice sets the legacy device port.
func (b *ConfigBuilder) WithDevice(p device.Port) *ConfigBuilder {
	b.config.device = p
	return b
}

// WithStore sets the durable record store.
func (b *ConfigBuilder) WithStore(s settings.Store) *ConfigBuilder {
	b.config.store = s
	return b
}

// WithRecord sets the live record. Without it New loads the record from
// the store.
func (b *ConfigBuilder) WithRecord(r settings.Record) *ConfigBuilder {
	b.config.record = &r
	return b
}

func (b *ConfigBuilder) WithMatcher(m at.Matcher) *ConfigBuilder {
	b.config.matcher = m
	return b
}

// WithCodeword enables or disables the in-band baud codeword on the
// network stream. It is enabled by default.
func (b *ConfigBuilder) WithCodeword(enabled bool) *ConfigBuilder {
	b.config.codeword = enabled
	return b
}

func (b *ConfigBuilder) WithSleeper(s Sleeper) *ConfigBuilder {
	b.config.sleeper = s
	return b
}

func (b *ConfigBuilder) WithRestarter(r Restarter) *ConfigBuilder {
	b.config.restarter = r
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

func (b *ConfigBuilder) WithIdleDivision(d int) *ConfigBuilder {
	b.config.idleDivision = d
	return b
}

func (b *ConfigBuilder) WithIndicatorPeriod(d time.Duration) *ConfigBuilder {
	b.config.indicatorPeriod = d
	return b
}

// WithDelays sets the pauses before a restart, before a failsafe restart
// and before entering the low-power state.
func (b *ConfigBuilder) WithDelays(restart, failsafe, sleep time.Duration) *ConfigBuilder {
	b.config.restartDelay = restart
	b.config.failsafeDelay = failsafe
	b.config.sleepDelay = sleep
	return b
}

// WithLongPress sets how long the control input must be held to restore
// the failsafe record.
func (b *ConfigBuilder) WithLongPress(d time.Duration) *ConfigBuilder {
	b.config.longPress = d
	return b
}

func (b *ConfigBuilder) WithWriteTimeout(d time.Duration) *ConfigBuilder {
	b.config.writeTimeout = d
	return b
}

// WithBurst sets the read chunk size and the number of chunks handled per
// direction in one loop iteration.
func (b *ConfigBuilder) WithBurst(bufferSize, maxBurst int) *ConfigBuilder {
	b.config.bufferSize = bufferSize
	b.config.maxBurst = maxBurst
	return b
}

// WithClock replaces the wall clock.
func (b *ConfigBuilder) WithClock(now func() time.Time) *ConfigBuilder {
	b.config.now = now
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	c.setDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
