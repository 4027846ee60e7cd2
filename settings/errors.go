package settings

import "errors"

var (
	// ErrMalformed is returned when a record text is not a JSON object.
	ErrMalformed = errors.New("malformed configuration record")

	// ErrUnreadable is returned by a Store when a record cannot be opened.
	// Transient I/O failures and absent records are not told apart.
	ErrUnreadable = errors.New("configuration record unreadable")
)
