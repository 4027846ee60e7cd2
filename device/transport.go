package device

import (
	"context"
	"io"
)

//go:generate go tool mockgen -destination=mock_device.go -package=device . Port,Dialer

// Transport represents an established, bidirectional byte stream to the
// legacy device.
type Transport interface {
	io.ReadWriteCloser
}

// Port is a Transport whose line settings can be changed while open.
//
// Typical implementations include serial ports and in-memory fakes used
// for testing.
type Port interface {
	Transport

	// SetBaudRate reconfigures the line rate.
	SetBaudRate(baud int) error
	// ResetInput discards bytes received but not yet read.
	ResetInput() error
	// Flush waits until written bytes have been transmitted.
	Flush() error
	// SetIndicator drives the status indicator line.
	SetIndicator(on bool) error
	// ControlPressed reports the level of the physical control input.
	ControlPressed() (bool, error)
}

// Dialer opens a Port to the legacy device.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Port. It
	// should respect cancellation of the context and returns an error if
	// the port cannot be opened.
	Dial(ctx context.Context) (Port, error)
}
