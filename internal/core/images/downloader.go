package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"Fbaccess/internal/queue"
)

// Downloader fetches the raw bytes behind a URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// QueueDownloader downloads through the shared request queue, so picture fetches are
// rate limited and ordered with the API calls. A host that keeps failing is skipped
// for a while.
type QueueDownloader struct {
	queue   *queue.Queue
	breaker *hostBreaker
}

// DownloaderOption configures a QueueDownloader.
type DownloaderOption func(*QueueDownloader)

// WithCircuitBreaker sets after how many consecutive failures a host is skipped, and for
// how long.
func WithCircuitBreaker(failureThreshold int, openDuration time.Duration) DownloaderOption {
	return func(d *QueueDownloader) {
		if failureThreshold > 0 && openDuration > 0 {
			d.breaker = newHostBreaker(failureThreshold, openDuration)
		}
	}
}

// NewQueueDownloader creates a QueueDownloader.
func NewQueueDownloader(q *queue.Queue, opts ...DownloaderOption) *QueueDownloader {
	d := &QueueDownloader{
		queue:   q,
		breaker: newHostBreaker(3, 5*time.Minute),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download enqueues a raw GET for rawURL and waits for it.
func (d *QueueDownloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrDownloadFailed, err)
	}
	host := u.Host
	if err := d.breaker.allow(host); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	job := queue.NewJob(func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	})
	job.SetRaw(true)

	// Leaving early abandons the download.
	stop := context.AfterFunc(ctx, job.Kill)
	defer stop()

	resp, err := d.queue.EnqueueAndWait(ctx, job)
	if err != nil {
		if countsAsHostFailure(err) {
			d.breaker.recordFailure(host, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	d.breaker.recordSuccess(host)
	return resp.Body, nil
}

// countsAsHostFailure reports whether err says something about the host rather than
// about this caller giving up.
func countsAsHostFailure(err error) bool {
	if errors.Is(err, queue.ErrKilled) || errors.Is(err, queue.ErrQueueClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *queue.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
