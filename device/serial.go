package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
)

// Line names accepted by SerialDialer.
const (
	LineNone = "none"
	LineDTR  = "dtr"
	LineRTS  = "rts"
	LineDSR  = "dsr"
	LineCTS  = "cts"
	LineRI   = "ri"
	LineDCD  = "dcd"
)

// allow tests to override the port opener
var openPort = func(name string, mode *serial.Mode) (serial.Port, error) {
	return serial.Open(name, mode)
}

// SerialDialer opens the device over a serial port using go.bug.st/serial.
type SerialDialer struct {
	// PortName is the OS name of the port, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil.
	BaudRate int
	// Mode overrides the default 8N1 line settings.
	Mode *serial.Mode
	// IndicatorLine is the output line driving the status indicator
	// ("dtr", "rts" or "none").
	IndicatorLine string
	// ControlLine is the input line read as the physical control button
	// ("dsr", "cts", "ri", "dcd" or "none"). An asserted line is a press.
	ControlLine string
}

func (d SerialDialer) Dial(ctx context.Context) (Port, error) {
	if ctx == nil {
		return nil, errors.New("device: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("device: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkLine(d.IndicatorLine, LineDTR, LineRTS); err != nil {
		return nil, err
	}
	if err := checkLine(d.ControlLine, LineDSR, LineCTS, LineRI, LineDCD); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 9600
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	p, err := openPort(d.PortName, mode)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("device: the port '%s' was not found", d.PortName)
	}
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", d.PortName, err)
	}

	m := *mode
	return &serialPort{
		Port:      p,
		mode:      &m,
		indicator: d.IndicatorLine,
		control:   d.ControlLine,
	}, nil
}

func checkLine(line string, allowed ...string) error {
	if line == "" || line == LineNone {
		return nil
	}
	for _, a := range allowed {
		if line == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownLine, line)
}

type serialPort struct {
	serial.Port
	mode      *serial.Mode
	indicator string
	control   string
}

func (s *serialPort) Read(buf []byte) (int, error) {
	n, err := s.Port.Read(buf)
	if err == nil && n == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return n, err
}

func (s *serialPort) SetBaudRate(baud int) error {
	m := *s.mode
	m.BaudRate = baud
	if err := s.Port.SetMode(&m); err != nil {
		return fmt.Errorf("device: set baud rate %d: %w", baud, err)
	}
	s.mode = &m
	return nil
}

func (s *serialPort) ResetInput() error {
	return s.Port.ResetInputBuffer()
}

func (s *serialPort) Flush() error {
	return s.Port.Drain()
}

func (s *serialPort) SetIndicator(on bool) error {
	switch s.indicator {
	case LineDTR:
		return s.Port.SetDTR(on)
	case LineRTS:
		return s.Port.SetRTS(on)
	default:
		return nil
	}
}

func (s *serialPort) ControlPressed() (bool, error) {
	if s.control == "" || s.control == LineNone {
		return false, nil
	}
	bits, err := s.Port.GetModemStatusBits()
	if err != nil {
		return false, err
	}
	switch s.control {
	case LineDSR:
		return bits.DSR, nil
	case LineCTS:
		return bits.CTS, nil
	case LineRI:
		return bits.RI, nil
	case LineDCD:
		return bits.DCD, nil
	}
	return false, nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
