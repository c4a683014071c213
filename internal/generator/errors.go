package generator

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a generation failure. The kind decides whether
// the retry orchestrator will re-attempt the call and which backoff
// base applies.
type ErrorKind string

const (
	ErrInvalidConfiguration  ErrorKind = "invalid_configuration"
	ErrServiceUnavailable    ErrorKind = "service_unavailable"
	ErrGeographicRestriction ErrorKind = "geographic_restriction"
	ErrMalformedResponse     ErrorKind = "malformed_response"
	ErrNetworkFailure        ErrorKind = "network_failure"
)

// Marker strings recognized in error messages from the generation
// service, in addition to HTTP status classification.
const (
	markerUnavailable = "service temporarily unavailable"
	markerMalformed   = "malformed service response"
	markerGeoBlocked  = "User location is not supported"
)

type GenerationError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string) *GenerationError {
	return &GenerationError{Kind: kind, Message: message}
}

// KindOf returns the classification of err, or "" if err carries none.
func KindOf(err error) ErrorKind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// Retryable reports whether the orchestrator should re-attempt after
// err. Transport-level failures are detected by error type, not by
// message content; marker strings cover errors surfaced by the
// service inside an otherwise successful exchange.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrServiceUnavailable, ErrMalformedResponse, ErrNetworkFailure:
		return true
	case ErrInvalidConfiguration, ErrGeographicRestriction:
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, markerUnavailable) || strings.Contains(msg, markerMalformed)
}
