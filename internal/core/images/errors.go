package images

import "errors"

var (
	// ErrEmptyKey is returned when a storage key is empty
	ErrEmptyKey = errors.New("storage key is empty")

	// ErrInvalidStoragePath is returned when the disk storage base path is empty
	ErrInvalidStoragePath = errors.New("storage base path cannot be empty")

	// ErrUnsupportedFormat is returned when the image format cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrProcessingFailed is returned when scaling fails for any other reason.
	ErrProcessingFailed = errors.New("image processing failed")

	// ErrDownloadFailed is returned when the picture could not be downloaded.
	ErrDownloadFailed = errors.New("image download failed")

	// ErrHostUnavailable is returned while a picture host is skipped after repeated failures.
	ErrHostUnavailable = errors.New("picture host unavailable")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)
