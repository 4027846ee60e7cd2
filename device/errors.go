package device

import "errors"

var (
	// ErrUnknownLine is returned by SerialDialer for an unsupported
	// indicator or control line name.
	ErrUnknownLine = errors.New("unknown modem control line")

	// ErrClosed is returned by operations on a closed Port.
	ErrClosed = errors.New("port closed")
)
