package api

import (
	"errors"
	"net/http"

	service "github.com/bhaveshbillionaier19/portkeyHAckathon/internal/app"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/repository"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/classifier"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/routing"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// OpError records the handler operation that failed.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *OpError) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// WrapKind annotates err with op and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// classify maps an error onto an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, classifier.ErrInvalidInput),
		errors.Is(err, routing.ErrInvalidInput),
		errors.Is(err, types.ErrUnknownCategory):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound),
		errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, orchestrator.ErrRunInProgress):
		return http.StatusConflict, "conflict"
	case errors.Is(err, routing.ErrRoutingExhausted):
		return http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, routing.ErrNoCandidates), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}
