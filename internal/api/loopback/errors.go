package loopback

import "errors"

// MinCookieSecretLength is the shortest accepted cookie signing secret.
const MinCookieSecretLength = 32

var (
	// ErrCookieSecretTooShort is returned when the cookie secret is under MinCookieSecretLength bytes.
	ErrCookieSecretTooShort = errors.New("cookie secret too short")

	// ErrAuthorizationInProgress is returned when Authorize is called while another login waits.
	ErrAuthorizationInProgress = errors.New("another authorization is in progress")

	// ErrNotStarted is returned when Authorize is called before Start.
	ErrNotStarted = errors.New("loopback server not started")
)
