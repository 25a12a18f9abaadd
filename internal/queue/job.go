package queue

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"Fbaccess/internal/core/graph"

	"github.com/google/uuid"
)

// BuildFunc creates the outbound HTTP request. It runs on the worker, after rate
// limiting, with the job's own cancellable context.
type BuildFunc func(ctx context.Context) (*http.Request, error)

// ResponseListener receives the decoded response of a successful job.
type ResponseListener func(resp *Response)

// ResponseCodeEvent describes a failed request: either a non-2xx status or, with Code 0,
// a transport failure.
type ResponseCodeEvent struct {
	JobID   uuid.UUID
	Code    int
	Message string
	Err     error
}

// ResponseCodeListener observes failed requests.
type ResponseCodeListener func(ev ResponseCodeEvent)

// ProgressFunc reports body download progress. total is -1 when unknown.
type ProgressFunc func(read, total int64)

// Job is a single queued request and the future of its result. Each job carries its own
// cancellation token, so a killed job never delivers to its listeners even when the
// network later answers.
type Job struct {
	ID uuid.UUID

	build  BuildFunc
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	onResponse    ResponseListener
	codeListeners []ResponseCodeListener
	progress      ProgressFunc
	dest          *graph.List
	raw           bool
	queued        bool

	killed   atomic.Bool
	finished sync.Once
	done     chan struct{}
	resp     *Response
	err      error
}

// NewJob creates a job that will execute the request produced by build.
func NewJob(build BuildFunc) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		ID:     uuid.New(),
		build:  build,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// NewRequestJob creates a job for a graph request.
func NewRequestJob(req *graph.Request) *Job {
	return NewJob(req.HTTPRequest)
}

// OnResponse sets the completion listener. A job has at most one; setting it again
// replaces the previous one. It is only invoked while the job is alive.
func (j *Job) OnResponse(fn ResponseListener) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onResponse = fn
}

// AddResponseCodeListener appends a listener. Listeners run in the order added.
func (j *Job) AddResponseCodeListener(fn ResponseCodeListener) {
	if fn == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.codeListeners = append(j.codeListeners, fn)
}

// BindProgress binds a progress indicator to this job, replacing any earlier binding.
func (j *Job) BindProgress(fn ProgressFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = fn
}

// SetResponseDestination makes the job append its decoded records to list.
func (j *Job) SetResponseDestination(list *graph.List) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dest = list
}

// SetRaw disables JSON decoding; the response carries only the body bytes.
func (j *Job) SetRaw(raw bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.raw = raw
}

// Kill cancels the job. Its listeners will not be notified, and Wait returns ErrKilled
// at once unless the job had already completed. A worker that later reaches the job
// skips it.
func (j *Job) Kill() {
	j.killed.Store(true)
	j.cancel()
	j.finish(nil, ErrKilled)
}

// Alive reports whether the job has not been killed.
func (j *Job) Alive() bool {
	return !j.killed.Load()
}

// Done is closed once the job has completed, failed or been killed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-j.done:
		return j.resp, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Job) finish(resp *Response, err error) {
	j.finished.Do(func() {
		j.resp = resp
		j.err = err
		j.cancel()
		close(j.done)
	})
}

// markQueued flags the job as handed to a queue. It fails for jobs already queued
// and for jobs killed before they were queued.
func (j *Job) markQueued() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.queued {
		return ErrAlreadyQueued
	}
	if !j.Alive() {
		return ErrKilled
	}
	j.queued = true
	return nil
}

// snapshot copies the listener wiring under the lock.
func (j *Job) snapshot() (ResponseListener, []ResponseCodeListener, ProgressFunc, *graph.List, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	listeners := make([]ResponseCodeListener, len(j.codeListeners))
	copy(listeners, j.codeListeners)
	return j.onResponse, listeners, j.progress, j.dest, j.raw
}
