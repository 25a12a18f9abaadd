package graph

import "errors"

var (
	// ErrConstruction is returned when a typed object cannot be built for a raw record.
	ErrConstruction = errors.New("cannot construct graph object")

	// ErrEmptyTarget is returned when a request has neither an object id nor a method URL.
	ErrEmptyTarget = errors.New("request target is empty")
)
