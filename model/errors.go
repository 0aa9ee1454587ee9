package model

import "errors"

var (
	// ErrStoreUnavailable is returned when the record store times out or cannot be reached
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
)
