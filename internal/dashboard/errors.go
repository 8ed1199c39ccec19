package dashboard

import "errors"

// ErrSectionNotFound and related errors describe controller failures.
var (
	ErrSectionNotFound = errors.New("section not found")
	ErrStaleFetch      = errors.New("stale fetch discarded")
)
