package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrOutsideVault     = errors.New("path escapes vault root")
	ErrConflictingModes = errors.New("strip-location and convert-location cannot be used together")
)
