package device

import (
	"bytes"
	"io"
	"sync"
)

// TestPort is a test helper that simulates a blocking Port using channels.
// Reads block until data is queued with SendData, like a real serial port
// would, and everything written is recorded.
type TestPort struct {
	mu        sync.Mutex
	readChan  chan []byte
	closed    bool
	written   bytes.Buffer
	baud      int
	resets    int
	indicator bool
	pressed   bool
	readErr   error
}

// NewTestPort creates a new test port running at baud.
func NewTestPort(baud int) *TestPort {
	return &TestPort{
		readChan: make(chan []byte, 64),
		baud:     baud,
	}
}

func (t *TestPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	return t.written.Write(p)
}

func (t *TestPort) Read(p []byte) (int, error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

func (t *TestPort) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baud = baud
	return nil
}

func (t *TestPort) ResetInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets++
	return nil
}

func (t *TestPort) Flush() error { return nil }

func (t *TestPort) SetIndicator(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indicator = on
	return nil
}

func (t *TestPort) ControlPressed() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readErr != nil {
		return false, t.readErr
	}
	return t.pressed, nil
}

// SendData queues data to be read from the port.
// This simulates receiving bytes from the device.
func (t *TestPort) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// SetPressed sets the level of the control input.
func (t *TestPort) SetPressed(pressed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pressed = pressed
}

// SetControlError makes ControlPressed fail with err. A nil err clears it.
func (t *TestPort) SetControlError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// Written returns everything written to the port so far.
func (t *TestPort) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}

// Baud returns the current baud rate.
func (t *TestPort) Baud() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

// Resets returns how many times ResetInput was called.
func (t *TestPort) Resets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

// Indicator returns the last indicator level.
func (t *TestPort) Indicator() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indicator
}
