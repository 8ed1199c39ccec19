package domain

import "errors"

var (
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidTitle        = errors.New("invalid title")
	ErrInvalidSectionType  = errors.New("invalid section type")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrInvalidAction       = errors.New("invalid workflow action")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidScreenConfig = errors.New("invalid screen config")
	ErrInvalidRule         = errors.New("invalid layout rule")
)
