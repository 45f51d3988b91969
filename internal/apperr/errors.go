// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidPath      = errors.New("invalid path")
	ErrIndexUnavailable = errors.New("index unavailable")
)
