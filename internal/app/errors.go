package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownSection = errors.New("unknown section")
	ErrNoScreenConfig = errors.New("screen config not configured")
)
