// Package resilience classifies transient failures and provides a small
// retry helper for operations outside the HTTP fetcher's own retry loop.
package resilience

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry, optionally carrying the
// HTTP status that produced it.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// retryableErrnos are the connection-level failures the provider host and the
// database produce when they shed load or recycle connections.
var retryableErrnos = []error{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.EPIPE,
}

// transientFragments covers the failures net/http surfaces only as message
// text: keep-alive connections the provider closes between grid points, and
// resolver blips on long scans.
var transientFragments = []string{
	"i/o timeout",
	"no such host",
	"tls handshake timeout",
	"connection reset by peer",
	"server closed idle connection",
}

// IsTransient reports whether the error chain contains a TransientError or
// one of the network failures a grid scan routinely recovers from.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// A response body cut off mid-read on a reused connection.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
