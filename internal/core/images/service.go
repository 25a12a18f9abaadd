// Package images fetches Graph API pictures, scales them and caches them in local
// storage under the cache keys the facade chooses.
package images

import (
	"context"
	"fmt"
	"log/slog"

	"Fbaccess/internal/queue"
)

// Target receives a picture, e.g. an avatar widget.
type Target interface {
	SetImage(data []byte)
}

// ListTarget receives a picture for one entry of a list model.
type ListTarget interface {
	SetItemImage(offset int, key string, data []byte)
}

// Callback receives a picture or the error that prevented fetching it.
type Callback func(data []byte, err error)

// ErrorHandler is told about failed deliveries to a Target or ListTarget.
type ErrorHandler func(url, cacheKey string, err error)

// Service fetches pictures through the storage cache.
type Service struct {
	storage    Storage
	downloader Downloader
	processor  Processor
	dispatch   queue.Dispatcher
	onError    ErrorHandler
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithProcessor sets the scaler. Without one, scale requests are ignored.
func WithProcessor(p Processor) ServiceOption {
	return func(s *Service) {
		s.processor = p
	}
}

// WithDispatcher sets how deliveries reach targets and callbacks.
func WithDispatcher(d queue.Dispatcher) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.dispatch = d
		}
	}
}

// WithErrorHandler sets the handler for failed Target and ListTarget deliveries.
func WithErrorHandler(h ErrorHandler) ServiceOption {
	return func(s *Service) {
		s.onError = h
	}
}

// NewService creates a Service.
func NewService(storage Storage, downloader Downloader, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, fmt.Errorf("%w: storage", ErrNilDependency)
	}
	if downloader == nil {
		return nil, fmt.Errorf("%w: downloader", ErrNilDependency)
	}
	s := &Service{
		storage:    storage,
		downloader: downloader,
		dispatch:   func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Storage returns the cache the service writes to.
func (s *Service) Storage() Storage {
	return s.storage
}

// Fetch returns the picture stored under cacheKey, downloading, scaling and storing it
// on a miss. A failed store is logged; the picture is still returned.
func (s *Service) Fetch(ctx context.Context, url, cacheKey string, scale Dimension) ([]byte, error) {
	cached, found, err := s.storage.Get(cacheKey)
	if err != nil {
		slog.Warn("[FB-IMAGES] storage read error, falling back to download",
			"cache_key", cacheKey,
			"error", err,
		)
	}
	if found {
		slog.Debug("[FB-IMAGES] storage hit", "cache_key", cacheKey)
		return cached, nil
	}

	data, err := s.downloader.Download(ctx, url)
	if err != nil {
		return nil, err
	}

	if s.processor != nil && !scale.IsZero() {
		data, err = s.processor.Scale(data, scale)
		if err != nil {
			return nil, err
		}
	}

	if err := s.storage.Set(cacheKey, data); err != nil {
		slog.Error("[FB-IMAGES] storage write failed",
			"cache_key", cacheKey,
			"error", err,
		)
	} else {
		slog.Debug("[FB-IMAGES] stored picture", "cache_key", cacheKey, "size_bytes", len(data))
	}
	return data, nil
}

// ToTarget fetches in the background and hands the picture to target.
func (s *Service) ToTarget(ctx context.Context, url string, target Target, cacheKey string, scale Dimension) {
	go func() {
		data, err := s.Fetch(ctx, url, cacheKey, scale)
		if err != nil {
			s.reportError(url, cacheKey, err)
			return
		}
		if target != nil {
			s.dispatch(func() { target.SetImage(data) })
		}
	}()
}

// ToCallback fetches in the background and invokes cb with the result.
func (s *Service) ToCallback(ctx context.Context, url string, cb Callback, cacheKey string) {
	go func() {
		data, err := s.Fetch(ctx, url, cacheKey, Dimension{})
		if cb != nil {
			s.dispatch(func() { cb(data, err) })
		} else if err != nil {
			s.reportError(url, cacheKey, err)
		}
	}()
}

// ToList fetches in the background and stores the picture in list at offset under key.
func (s *Service) ToList(ctx context.Context, url string, list ListTarget, offset int, key, cacheKey string, scale Dimension) {
	go func() {
		data, err := s.Fetch(ctx, url, cacheKey, scale)
		if err != nil {
			s.reportError(url, cacheKey, err)
			return
		}
		if list != nil {
			s.dispatch(func() { list.SetItemImage(offset, key, data) })
		}
	}()
}

func (s *Service) reportError(url, cacheKey string, err error) {
	slog.Warn("[FB-IMAGES] picture fetch failed", "cache_key", cacheKey, "error", err)
	if s.onError != nil {
		s.dispatch(func() { s.onError(url, cacheKey, err) })
	}
}
