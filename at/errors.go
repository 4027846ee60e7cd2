package at

import "errors"

var (
	// ErrUnknownMatchMode is returned by MatcherFor for a mode other than
	// "prefix" or "substring".
	ErrUnknownMatchMode = errors.New("unknown match mode")
)
