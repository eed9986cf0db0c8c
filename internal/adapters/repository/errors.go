package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrNilTable     = errors.New("nil performance table")
	ErrStalePublish = errors.New("table version is not newer than the live table")
)
