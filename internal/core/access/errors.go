package access

import "errors"

var (
	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")

	// ErrNoCurrentRequest is returned by KillCurrentRequest when no request has been
	// issued yet. Calling it in that state is a caller bug.
	ErrNoCurrentRequest = errors.New("no current request")

	// ErrNoAuthenticator is returned by Authenticate when no authenticator is configured.
	ErrNoAuthenticator = errors.New("no authenticator configured")

	// ErrNoImageService is returned by the picture operations when no image service is configured.
	ErrNoImageService = errors.New("no image service configured")

	// ErrEmptyID is returned when an operation needs an object ID and got none.
	ErrEmptyID = errors.New("object ID is required")
)
