package archive

import "errors"

var (
	// ErrNotFound is returned when the archive holds no matching record.
	ErrNotFound = errors.New("archive: not found")
	// ErrNilRecord is returned when asked to save a nil table.
	ErrNilRecord = errors.New("archive: nil record")
)
