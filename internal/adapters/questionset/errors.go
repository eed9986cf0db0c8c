package questionset

import "errors"

// ErrInvalidSet is returned when a question set fails validation.
var ErrInvalidSet = errors.New("invalid question set")
