package auth

import "errors"

var (
	// ErrAuthentication wraps every failure of the login flow.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorizationDenied is returned when the redirect carries an error parameter,
	// e.g. the user declined the permissions.
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrNoToken is returned when the redirect carries neither a token nor a code.
	ErrNoToken = errors.New("no access token in redirect")

	// ErrStateMismatch is returned when the redirect state differs from the one sent.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrMissingClientID is returned when no client ID was given.
	ErrMissingClientID = errors.New("client ID is required")

	// ErrNilAuthorizer is returned when the authenticator has no Authorizer.
	ErrNilAuthorizer = errors.New("authorizer is nil")
)
