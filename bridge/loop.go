// Package bridge relays bytes between one network client and the legacy
// device while watching both streams for control commands.
//
// All bridge state is owned by the goroutine running Loop.Run. The device,
// the listener and the attached client each have a reader goroutine that
// only moves chunks onto channels. Remote requests reach the loop through
// a request channel and are serviced once per iteration, so nothing in the
// package needs a lock.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"i4.energy/across/serbridge/at"
	"i4.energy/across/serbridge/idle"
	"i4.energy/across/serbridge/indicator"
	"i4.energy/across/serbridge/settings"
)

// Mode is the connection state of the loop.
type Mode int

const (
	Idle     Mode = iota // no client has been attached yet
	Bridging             // a client is attached
	Draining             // the client left; the device side is still serviced
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Bridging:
		return "bridging"
	case Draining:
		return "draining"
	default:
		return "unknown"
	}
}

// Loop is the bridge control loop.
type Loop struct {
	config  Config
	state   *State
	logger  *slog.Logger
	running atomic.Bool

	mode    Mode
	client  *client
	netLine *at.LineScanner
	netWord *at.CodewordScanner
	devLine *at.LineScanner
	press   pressDetector

	devIn    chan []byte
	devErr   chan error
	accepts  chan net.Conn
	requests chan *request
	// pending halts the loop once the current request was answered.
	pending func() error
}

// New creates a loop from config. When config carries no record the live
// record is loaded from the store, falling back to the defaults.
func New(config Config) (*Loop, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	l := &Loop{
		config:   config,
		logger:   config.logger,
		press:    pressDetector{threshold: config.longPress},
		devIn:    make(chan []byte),
		devErr:   make(chan error, 1),
		accepts:  make(chan net.Conn),
		requests: make(chan *request),
	}

	var rec settings.Record
	if config.record != nil {
		rec = *config.record
	} else {
		var fellBack bool
		var err error
		rec, fellBack, err = settings.LoadOrDefault(config.store, settings.ConfigName)
		if err != nil {
			l.logger.Error("persist default configuration", "error", err)
		}
		if fellBack {
			l.logger.Warn("stored configuration unusable, using defaults")
		}
	}

	state, err := NewState(rec, config.idleDivision, indicator.OutputFunc(l.setIndicator), config.indicatorPeriod)
	if err != nil {
		return nil, err
	}
	l.state = state
	l.devLine = at.NewLineScanner(config.matcher, l.dispatcher(config.device))
	return l, nil
}

func (l *Loop) dispatcher(out io.Writer) *Dispatcher {
	return &Dispatcher{
		Out:          out,
		State:        l.state,
		Store:        l.config.store,
		Sleeper:      SleeperFunc(l.lowPower),
		Restarter:    l.config.restarter,
		RestartDelay: l.config.restartDelay,
		Logger:       l.logger,
	}
}

// Run bridges until the low-power state is entered, a restart is requested,
// the device fails or ctx is cancelled. It returns ErrSleep or ErrRestart
// for the first two. The listener is closed when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.config.listener.Close()
	defer l.detach()

	go l.readDevice(ctx)
	go l.acceptClients(ctx)

	now := l.config.now()
	l.state.Indicator.Start(now)
	l.state.Activity(now)
	l.logger.Info("bridge serving",
		"address", l.config.listener.Addr().String(),
		"baud", l.state.Record.BaudRate,
		"idle_period", l.state.Idle.Period().String())

	poll := time.NewTicker(l.config.indicatorPeriod)
	defer poll.Stop()

	for {
		var netIn <-chan []byte
		if l.client != nil {
			netIn = l.client.in
		}

		var netChunk, devChunk []byte
		select {
		case <-ctx.Done():
			return ctx.Err()

		case conn := <-l.accepts:
			l.attach(conn)

		case chunk, ok := <-netIn:
			if !ok {
				l.detach()
				break
			}
			netChunk = chunk

		case chunk := <-l.devIn:
			devChunk = chunk

		case err := <-l.devErr:
			return fmt.Errorf("read device: %w", err)

		case <-poll.C:
		}

		if err := l.pumpNetwork(netChunk); err != nil {
			return err
		}
		if err := l.pumpDevice(devChunk); err != nil {
			return err
		}
		if err := l.service(); err != nil {
			return err
		}
	}
}

func (l *Loop) readDevice(ctx context.Context) {
	buf := make([]byte, l.config.bufferSize)
	for {
		n, err := l.config.device.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case l.devIn <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				l.devErr <- err
			}
			return
		}
	}
}

func (l *Loop) acceptClients(ctx context.Context) {
	for {
		conn, err := l.config.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn("accept client", "error", err)
			time.Sleep(5 * time.Millisecond)
			continue
		}
		select {
		case l.accepts <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (l *Loop) attach(conn net.Conn) {
	if l.client != nil {
		l.logger.Warn("rejecting client, already bridging", "remote", conn.RemoteAddr().String())
		conn.Close()
		return
	}

	// Stale device bytes are not delivered to a fresh client.
	l.discardDevice()
	if err := l.config.device.ResetInput(); err != nil {
		l.logger.Warn("reset device input", "error", err)
	}

	l.client = newClient(conn, l.config.bufferSize, l.config.writeTimeout)
	l.netLine = at.NewLineScanner(l.config.matcher, l.dispatcher(l.client))
	if l.config.codeword {
		l.netWord = at.NewCodewordScanner(at.SelectorFunc(l.selectBaud))
	}
	l.mode = Bridging
	l.logger.Info("client attached", "remote", l.client.String())
}

func (l *Loop) detach() {
	if l.client == nil {
		return
	}
	l.logger.Info("client detached", "remote", l.client.String())
	l.client.Close()
	l.client = nil
	l.netLine = nil
	l.netWord = nil
	l.mode = Draining
}

func (l *Loop) discardDevice() {
	for {
		select {
		case <-l.devIn:
		default:
			return
		}
	}
}

// pumpNetwork handles first, if any, and then every chunk the client has
// ready, up to the burst limit.
func (l *Loop) pumpNetwork(first []byte) error {
	chunk := first
	for i := 0; i < l.config.maxBurst; i++ {
		if chunk == nil {
			if l.client == nil {
				return nil
			}
			select {
			case c, ok := <-l.client.in:
				if !ok {
					l.detach()
					return nil
				}
				chunk = c
			default:
				return nil
			}
		}
		if err := l.fromNetwork(chunk); err != nil {
			return err
		}
		chunk = nil
	}
	return nil
}

func (l *Loop) pumpDevice(first []byte) error {
	chunk := first
	for i := 0; i < l.config.maxBurst; i++ {
		if chunk == nil {
			select {
			case chunk = <-l.devIn:
			default:
				return nil
			}
		}
		if err := l.fromDevice(chunk); err != nil {
			return err
		}
		chunk = nil
	}
	return nil
}

func (l *Loop) fromNetwork(chunk []byte) error {
	if l.netLine == nil {
		return nil
	}
	// Only the first line of a chunk is scanned. The rest is forwarded
	// unscanned.
	if _, err := l.netLine.Scan(chunk); err != nil {
		return err
	}
	if l.netWord != nil {
		if err := l.netWord.Scan(chunk); err != nil {
			return err
		}
	}
	if _, err := l.config.device.Write(chunk); err != nil {
		return fmt.Errorf("write device: %w", err)
	}
	if err := l.config.device.Flush(); err != nil {
		return fmt.Errorf("flush device: %w", err)
	}
	l.activity()
	return nil
}

func (l *Loop) fromDevice(chunk []byte) error {
	if _, err := l.devLine.Scan(chunk); err != nil {
		return err
	}
	if l.client != nil {
		if _, err := l.client.Write(chunk); err != nil {
			l.logger.Warn("write client", "error", err)
			l.detach()
		}
	}
	l.activity()
	return nil
}

func (l *Loop) activity() {
	now := l.config.now()
	l.state.Activity(now)
	l.state.Indicator.Update(now)
}

// service runs the periodic work of one iteration.
func (l *Loop) service() error {
	if err := l.serviceRequests(); err != nil {
		return err
	}

	now := l.config.now()
	if phase, fired := l.state.Idle.Update(now); fired {
		l.logger.Debug("idle tick", "count", l.state.Idle.Count(), "phase", phase.String())
		if phase == idle.Expired {
			l.logger.Info("idle timeout expired")
			l.lowPower()
			return ErrSleep
		}
		l.state.Indicator.Set(phase.Indicator())
	}
	l.state.Indicator.Update(now)

	return l.checkControl(now)
}

func (l *Loop) checkControl(now time.Time) error {
	pressed, err := l.config.device.ControlPressed()
	if err != nil {
		l.logger.Debug("read control input", "error", err)
		return nil
	}
	switch l.press.poll(pressed, now) {
	case pressLong:
		l.logger.Info("control input held, restoring failsafe configuration")
		return l.restoreFailsafe()
	case pressShort:
		l.logger.Info("control input pressed, idle timer restarted")
		l.activity()
	}
	return nil
}

func (l *Loop) restoreFailsafe() error {
	rec, fellBack, err := settings.LoadOrDefault(l.config.store, settings.FailsafeName)
	if err != nil {
		l.logger.Error("persist default configuration", "error", err)
	}
	if fellBack {
		l.logger.Warn("failsafe record unusable, using defaults")
	}
	l.state.Record = rec
	if err := l.config.store.Save(settings.ConfigName, rec); err != nil {
		l.logger.Error("save config record", "error", err)
	}
	time.Sleep(l.config.failsafeDelay)
	l.config.restarter.Restart()
	return ErrRestart
}

// selectBaud retunes the device to the baud rate at index and persists it.
func (l *Loop) selectBaud(index int) error {
	baud := at.BaudRate(index)
	if err := l.config.device.SetBaudRate(baud); err != nil {
		l.logger.Warn("set baud rate", "baud", baud, "error", err)
		return nil
	}
	l.state.Record.BaudRate = baud
	if l.client != nil {
		if _, err := l.client.Write([]byte(at.OK + at.CRLF)); err != nil {
			l.logger.Warn("write client", "error", err)
		}
	}
	if err := l.config.store.Save(settings.ConfigName, l.state.Record); err != nil {
		l.logger.Error("save config record", "error", err)
	}
	l.logger.Info("baud rate selected", "index", index, "baud", baud)
	return nil
}

func (l *Loop) lowPower() {
	l.logger.Info("entering low-power state")
	l.state.Indicator.Blank()
	time.Sleep(l.config.sleepDelay)
	l.config.sleeper.Sleep()
}

func (l *Loop) setIndicator(on bool) {
	if err := l.config.device.SetIndicator(on); err != nil {
		l.logger.Debug("set indicator", "error", err)
	}
}
