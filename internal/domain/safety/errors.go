package safety

import "errors"

// ErrSafetyRejection marks a model response that failed the safety check.
var ErrSafetyRejection = errors.New("response failed safety check")

// ErrInvalidPattern is returned when a configured deny pattern does not compile.
var ErrInvalidPattern = errors.New("invalid deny pattern")
