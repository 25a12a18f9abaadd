package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"Fbaccess/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDownloader_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	q := queue.New()
	q.Start(context.Background())
	defer q.Stop()

	d := NewQueueDownloader(q)

	data, err := d.Download(context.Background(), server.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG-bytes"), data)

	_, err = d.Download(context.Background(), server.URL+"/missing.png")
	assert.ErrorIs(t, err, ErrDownloadFailed)
}

func TestQueueDownloader_CircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	q := queue.New()
	q.Start(context.Background())
	defer q.Stop()

	d := NewQueueDownloader(q, WithCircuitBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := d.Download(context.Background(), server.URL+"/p.jpg")
		assert.ErrorIs(t, err, ErrDownloadFailed)
	}

	_, err := d.Download(context.Background(), server.URL+"/p.jpg")
	assert.ErrorIs(t, err, ErrHostUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open circuit skips the request")
}

func TestCountsAsHostFailure(t *testing.T) {
	assert.False(t, countsAsHostFailure(queue.ErrKilled))
	assert.False(t, countsAsHostFailure(context.Canceled))
	assert.False(t, countsAsHostFailure(&queue.APIError{StatusCode: http.StatusNotFound}))
	assert.True(t, countsAsHostFailure(&queue.APIError{StatusCode: http.StatusServiceUnavailable}))
	assert.True(t, countsAsHostFailure(queue.ErrTransport))
}
