package bridge

import "errors"

var (
	// ErrSleep is returned by Loop.Run after the low-power state was entered.
	//
	// The loop does not resume; the process is expected to halt.
	ErrSleep = errors.New("entered low-power state")

	// ErrRestart is returned by Loop.Run after a restart was requested.
	//
	// The caller rebuilds the device, the listener and the loop from the
	// persisted configuration.
	ErrRestart = errors.New("restart requested")

	// ErrNoListener is returned when a Config is built without a listener.
	ErrNoListener = errors.New("no listener configured")

	// ErrNoDevice is returned when a Config is built without a device port.
	ErrNoDevice = errors.New("no device configured")

	// ErrNoStore is returned when a Config is built without a settings store.
	ErrNoStore = errors.New("no settings store configured")

	// ErrLoopRunning is returned when Run is called on a loop that is
	// already running.
	ErrLoopRunning = errors.New("loop already running")

	// ErrUnauthorized is returned by remote requests carrying a wrong update
	// password.
	ErrUnauthorized = errors.New("update password mismatch")
)
