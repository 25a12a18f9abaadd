package queue

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrKilled is returned by Wait when the job was killed before it completed.
	ErrKilled = errors.New("request killed")

	// ErrQueueClosed is returned when enqueuing on a stopped queue, and by Wait for jobs
	// still pending when the queue stopped.
	ErrQueueClosed = errors.New("request queue closed")

	// ErrAlreadyQueued is returned when the same job is enqueued twice.
	ErrAlreadyQueued = errors.New("job already queued")

	// ErrTransport wraps network failures that produced no HTTP response.
	ErrTransport = errors.New("transport failure")

	// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrAPI is the sentinel every *APIError unwraps to.
	ErrAPI = errors.New("facebook API error")

	// ErrNilJob is returned when a nil job is enqueued.
	ErrNilJob = errors.New("job is nil")
)

// APIError is an error reported by the Graph API (non-2xx status with an error envelope)
// or by the legacy REST API (error_code / error_msg in a 200 body).
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Type != "" {
		return fmt.Sprintf("facebook API error (status %d, %s): %s", e.StatusCode, e.Type, msg)
	}
	return fmt.Sprintf("facebook API error (status %d): %s", e.StatusCode, msg)
}

// Unwrap lets errors.Is(err, ErrAPI) match.
func (e *APIError) Unwrap() error {
	return ErrAPI
}

// IsAuthError reports whether err is an OAuth failure, where re-authenticating may help.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Type == "OAuthException" ||
		apiErr.StatusCode == http.StatusUnauthorized ||
		apiErr.StatusCode == http.StatusForbidden
}
