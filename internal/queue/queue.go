// Package queue executes outbound API requests on a small pool of workers. It is the
// one shared network queue of a session: requests are rate limited, report download
// progress, notify response-code listeners on failure, and deliver decoded records to a
// single completion listener unless the request was killed first.
package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxBodyBytes bounds response bodies when no limit is configured.
const DefaultMaxBodyBytes = 16 * 1024 * 1024

// Dispatcher runs listener callbacks. A UI would marshal them onto its event loop.
type Dispatcher func(fn func())

// Queue executes jobs in FIFO order.
type Queue struct {
	client       *http.Client
	workers      int
	limiter      *rate.Limiter
	dispatch     Dispatcher
	maxBodyBytes int64

	mu      sync.Mutex
	pending []*Job
	closed  bool
	started bool
	wake    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return func(q *Queue) {
		if client != nil {
			q.client = client
		}
	}
}

// WithWorkers sets the number of concurrent workers. The default of one keeps requests
// strictly ordered.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithRateLimit caps the request rate. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(q *Queue) {
		if rps <= 0 {
			q.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		q.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithDispatcher sets how listener callbacks are delivered. The default runs them on
// the worker goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(q *Queue) {
		if d != nil {
			q.dispatch = d
		}
	}
}

// WithMaxBodyBytes bounds response bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxBodyBytes = n
		}
	}
}

// New creates a stopped queue. Call Start before expecting jobs to run; jobs enqueued
// earlier wait for it.
func New(opts ...Option) *Queue {
	q := &Queue{
		client:       &http.Client{Timeout: 30 * time.Second},
		workers:      1,
		dispatch:     func(fn func()) { fn() },
		maxBodyBytes: DefaultMaxBodyBytes,
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	slog.Debug("[FB-QUEUE] started", "workers", q.workers)
}

// Stop shuts the workers down after their current job and fails every job still
// pending with ErrQueueClosed.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.wg.Wait()

	q.mu.Lock()
	remaining := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, job := range remaining {
		job.finish(nil, ErrQueueClosed)
	}
	slog.Debug("[FB-QUEUE] stopped", "abandoned_jobs", len(remaining))
}

// Enqueue adds the job and returns immediately. Completion is reported through the
// job's listeners and its Done channel.
func (q *Queue) Enqueue(job *Job) error {
	if job == nil {
		return ErrNilJob
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if err := job.markQueued(); err != nil {
		q.mu.Unlock()
		return err
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// EnqueueAndWait adds the job and blocks until it completes, is killed, or ctx ends.
func (q *Queue) EnqueueAndWait(ctx context.Context, job *Job) (*Response, error) {
	if err := q.Enqueue(job); err != nil {
		return nil, err
	}
	return job.Wait(ctx)
}

// Pending returns the number of jobs waiting for a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) next() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return job
}

// worker is the processing loop for a single worker.
func (q *Queue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()
	logger := slog.With("worker_id", workerID)

	for {
		job := q.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		if ctx.Err() != nil {
			// Put it back so Stop can fail it.
			q.mu.Lock()
			q.pending = append([]*Job{job}, q.pending...)
			q.mu.Unlock()
			return
		}

		q.execute(ctx, job, logger.With("job_id", job.ID))
	}
}

func (q *Queue) execute(ctx context.Context, job *Job, logger *slog.Logger) {
	if !job.Alive() {
		logger.Debug("[FB-QUEUE] skipping killed job")
		job.finish(nil, ErrKilled)
		return
	}

	onResponse, codeListeners, progress, dest, raw := job.snapshot()

	// Stop the request when the queue shuts down mid-flight.
	stop := context.AfterFunc(ctx, job.cancel)
	defer stop()

	if q.limiter != nil {
		if err := q.limiter.Wait(job.ctx); err != nil {
			q.fail(job, codeListeners, 0, "", fmt.Errorf("%w: rate limiter: %v", ErrTransport, err))
			return
		}
	}

	req, err := job.build(job.ctx)
	if err != nil {
		q.fail(job, codeListeners, 0, "", fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}

	logger.Debug("[FB-QUEUE] executing request", "method", req.Method, "url", redactedURL(req))

	resp, err := q.client.Do(req)
	if err != nil {
		q.fail(job, codeListeners, 0, "", fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}
	defer resp.Body.Close()

	var body io.Reader = io.LimitReader(resp.Body, q.maxBodyBytes+1)
	if progress != nil {
		body = &progressReader{r: body, total: resp.ContentLength, fn: progress, dispatch: q.dispatch}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		q.fail(job, codeListeners, 0, "", fmt.Errorf("%w: failed to read response body: %v", ErrTransport, err))
		return
	}
	if int64(len(data)) > q.maxBodyBytes {
		q.fail(job, codeListeners, resp.StatusCode, "", fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, q.maxBodyBytes))
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apiErrorFromBody(resp.StatusCode, data)
		logger.Warn("[FB-QUEUE] request failed",
			"status", resp.StatusCode,
			"error_type", apiErr.Type,
			"error", apiErr.Message,
		)
		q.fail(job, codeListeners, resp.StatusCode, apiErr.Message, apiErr)
		return
	}

	result := &Response{
		JobID:      job.ID,
		StatusCode: resp.StatusCode,
		Body:       data,
	}
	if !raw {
		records, paging, err := decodeBody(resp.StatusCode, data)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				q.fail(job, codeListeners, resp.StatusCode, apiErr.Message, apiErr)
				return
			}
			q.fail(job, codeListeners, resp.StatusCode, "", err)
			return
		}
		result.Records = records
		result.Paging = paging
	}

	if !job.Alive() {
		logger.Debug("[FB-QUEUE] discarding response of killed job")
		job.finish(nil, ErrKilled)
		return
	}

	if dest != nil || onResponse != nil {
		q.dispatch(func() {
			if !job.Alive() {
				return
			}
			if dest != nil && len(result.Records) > 0 {
				dest.Add(result.Records...)
			}
			if onResponse != nil {
				onResponse(result)
			}
		})
	}
	job.finish(result, nil)
}

// fail notifies the response-code listeners, in order, and finishes the job. A killed
// job finishes silently.
func (q *Queue) fail(job *Job, listeners []ResponseCodeListener, code int, message string, err error) {
	if !job.Alive() {
		job.finish(nil, ErrKilled)
		return
	}

	if len(listeners) > 0 {
		ev := ResponseCodeEvent{JobID: job.ID, Code: code, Message: message, Err: err}
		q.dispatch(func() {
			for _, l := range listeners {
				l(ev)
			}
		})
	}
	job.finish(nil, err)
}

// redactedURL hides the access token in logs.
func redactedURL(req *http.Request) string {
	u := *req.URL
	query := u.Query()
	if query.Has("access_token") {
		query.Set("access_token", "REDACTED")
		u.RawQuery = query.Encode()
	}
	return u.String()
}
