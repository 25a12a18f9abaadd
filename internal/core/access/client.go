// Package access is the entry point of the Graph API binding: one Client per session,
// with one method per operation. Reads return immediately with the queued job; the
// three write operations block until the queue has executed them.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"Fbaccess/internal/core/auth"
	"Fbaccess/internal/core/graph"
	"Fbaccess/internal/core/images"
	"Fbaccess/internal/queue"
)

// DefaultFeedLimit is the page size of the feed shortcuts unless the caller sets one.
const DefaultFeedLimit = 13

// Client is a Graph API session.
type Client struct {
	cfg           Config
	queue         *queue.Queue
	images        *images.Service
	authenticator *auth.Authenticator

	mu            sync.Mutex
	token         string
	progress      queue.ProgressFunc
	codeListeners []queue.ResponseCodeListener
	current       *queue.Job
}

// Option configures a Client.
type Option func(*Client)

// WithAuthenticator sets the login flow used by Authenticate.
func WithAuthenticator(a *auth.Authenticator) Option {
	return func(c *Client) {
		c.authenticator = a
	}
}

// WithToken starts the session with an existing access token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a Client. The image service may be nil, in which case the picture
// operations fail with ErrNoImageService.
func NewClient(cfg Config, q *queue.Queue, imgs *images.Service, opts ...Option) (*Client, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: queue", ErrNilDependency)
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = graph.DefaultGraphURL
	}
	if cfg.RESTURL == "" {
		cfg.RESTURL = graph.DefaultRESTURL
	}

	c := &Client{cfg: cfg, queue: q, images: imgs}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Authenticate logs in and keeps the resulting token for later requests.
func (c *Client) Authenticate(ctx context.Context, clientID, redirectURI string, permissions []string) error {
	if c.authenticator == nil {
		return ErrNoAuthenticator
	}
	token, err := c.authenticator.Authenticate(ctx, clientID, redirectURI, permissions)
	if err != nil {
		return err
	}
	c.SetToken(token)
	return nil
}

// SetToken replaces the access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the access token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SetProgress binds fn to every request issued from now on. nil unbinds.
func (c *Client) SetProgress(fn queue.ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = fn
}

// AddResponseCodeListener registers fn on every request issued from now on.
func (c *Client) AddResponseCodeListener(fn queue.ResponseCodeListener) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codeListeners = append(c.codeListeners, fn)
}

// CurrentRequest returns the most recently issued request, or nil.
func (c *Client) CurrentRequest() *queue.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// KillCurrentRequest kills the most recently issued request. Calling it before any
// request was issued returns ErrNoCurrentRequest.
func (c *Client) KillCurrentRequest() error {
	job := c.CurrentRequest()
	if job == nil {
		return ErrNoCurrentRequest
	}
	slog.Debug("[FB-ACCESS] killing current request", "job_id", job.ID)
	job.Kill()
	return nil
}

func (c *Client) graphRequest(id string, connection graph.Connection, write bool) *graph.Request {
	return graph.NewGraphRequest(c.cfg.GraphURL, c.Token(), id, connection, write)
}

func (c *Client) methodRequest(method string) *graph.Request {
	return graph.NewMethodRequest(c.cfg.RESTURL, method, c.Token(), false)
}

// issue wires the session's listeners onto req, enqueues it and makes it current.
// Cancelling ctx kills the job.
func (c *Client) issue(ctx context.Context, req *graph.Request, dest *graph.List, onResponse queue.ResponseListener) (*queue.Job, error) {
	job := queue.NewRequestJob(req)

	c.mu.Lock()
	progress := c.progress
	listeners := slices.Clone(c.codeListeners)
	c.mu.Unlock()

	if onResponse != nil {
		job.OnResponse(onResponse)
	}
	if progress != nil {
		job.BindProgress(progress)
	}
	for _, l := range listeners {
		job.AddResponseCodeListener(l)
	}
	if dest != nil {
		job.SetResponseDestination(dest)
	}

	if err := c.queue.Enqueue(job); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = job
	c.mu.Unlock()

	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, job.Kill)
		go func() {
			<-job.Done()
			stop()
		}()
	}

	slog.Debug("[FB-ACCESS] request issued", "job_id", job.ID, "method", req.Method(), "endpoint", req.Endpoint())
	return job, nil
}

// GetObject fetches a single object as a raw record.
func (c *Client) GetObject(ctx context.Context, id string, cb queue.ResponseListener) (*queue.Job, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return c.issue(ctx, c.graphRequest(id, graph.ConnectionSelf, false), nil, cb)
}

// GetObjectItems lists a connection of id into dest. params are added as encoded
// arguments in key order.
func (c *Client) GetObjectItems(ctx context.Context, id string, connection graph.Connection, dest *graph.List, params map[string]string, cb queue.ResponseListener) (*queue.Job, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	req := c.graphRequest(id, connection, false)
	addParams(req, params)
	return c.issue(ctx, req, dest, cb)
}

func addParams(req *graph.Request, params map[string]string) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.AddArgument(k, params[k])
	}
}

// getTyped fetches id and copies the first record into obj before cb runs.
func (c *Client) getTyped(ctx context.Context, id string, obj graph.Object, cb queue.ResponseListener) (*queue.Job, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return c.issue(ctx, c.graphRequest(id, graph.ConnectionSelf, false), nil, func(resp *queue.Response) {
		if obj != nil {
			if rec := resp.First(); rec != nil {
				obj.Copy(rec)
			}
		}
		if cb != nil {
			cb(resp)
		}
	})
}

// GetUser fills user from the user object. An empty userID means the token's owner.
func (c *Client) GetUser(ctx context.Context, userID string, user *graph.User, cb queue.ResponseListener) (*queue.Job, error) {
	return c.getTyped(ctx, meIfEmpty(userID), user, cb)
}

// GetPost fills post.
func (c *Client) GetPost(ctx context.Context, postID string, post *graph.Post, cb queue.ResponseListener) (*queue.Job, error) {
	return c.getTyped(ctx, postID, post, cb)
}

// GetPhoto fills photo.
func (c *Client) GetPhoto(ctx context.Context, photoID string, photo *graph.Photo, cb queue.ResponseListener) (*queue.Job, error) {
	return c.getTyped(ctx, photoID, photo, cb)
}

// GetAlbum fills album.
func (c *Client) GetAlbum(ctx context.Context, albumID string, album *graph.Album, cb queue.ResponseListener) (*queue.Job, error) {
	return c.getTyped(ctx, albumID, album, cb)
}

func meIfEmpty(id string) string {
	if id == "" {
		return "me"
	}
	return id
}

func withDefaultLimit(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if _, ok := out["limit"]; !ok {
		out["limit"] = strconv.Itoa(DefaultFeedLimit)
	}
	return out
}

// GetNewsFeed lists the user's news feed into dest.
func (c *Client) GetNewsFeed(ctx context.Context, userID string, dest *graph.List, params map[string]string, cb queue.ResponseListener) (*queue.Job, error) {
	return c.GetObjectItems(ctx, meIfEmpty(userID), graph.ConnectionHome, dest, withDefaultLimit(params), cb)
}

// GetWallFeed lists the user's wall into dest.
func (c *Client) GetWallFeed(ctx context.Context, userID string, dest *graph.List, params map[string]string, cb queue.ResponseListener) (*queue.Job, error) {
	return c.GetObjectItems(ctx, meIfEmpty(userID), graph.ConnectionFeed, dest, withDefaultLimit(params), cb)
}

// GetUserFriends lists the user's friends into dest.
func (c *Client) GetUserFriends(ctx context.Context, userID string, dest *graph.List, cb queue.ResponseListener) (*queue.Job, error) {
	return c.GetObjectItems(ctx, meIfEmpty(userID), graph.ConnectionFriends, dest, nil, cb)
}

// GetUserAlbums lists the user's albums into dest.
func (c *Client) GetUserAlbums(ctx context.Context, userID string, dest *graph.List, cb queue.ResponseListener) (*queue.Job, error) {
	return c.GetObjectItems(ctx, meIfEmpty(userID), graph.ConnectionAlbums, dest, nil, cb)
}

// GetAlbumPhotos lists limit photos of the album, starting at offset.
func (c *Client) GetAlbumPhotos(ctx context.Context, albumID string, dest *graph.List, offset, limit int, cb queue.ResponseListener) (*queue.Job, error) {
	params := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}
	return c.GetObjectItems(ctx, albumID, graph.ConnectionPhotos, dest, params, cb)
}

// GetPostComments lists the comments of a post into dest.
func (c *Client) GetPostComments(ctx context.Context, postID string, dest *graph.List, cb queue.ResponseListener) (*queue.Job, error) {
	return c.GetObjectItems(ctx, postID, graph.ConnectionComments, dest, nil, cb)
}

// GetUserInboxThreads lists up to limit inbox threads into dest.
func (c *Client) GetUserInboxThreads(ctx context.Context, userID string, dest *graph.List, limit int, cb queue.ResponseListener) (*queue.Job, error) {
	params := map[string]string{"limit": strconv.Itoa(limit)}
	return c.GetObjectItems(ctx, meIfEmpty(userID), graph.ConnectionInbox, dest, params, cb)
}

// GetUserEvents lists the user's events into dest.
func (c *Client) GetUserEvents(ctx context.Context, userID string, dest *graph.List, cb queue.ResponseListener) (*queue.Job, error) {
	return c.GetObjectItems(ctx, meIfEmpty(userID), graph.ConnectionEvents, dest, nil, cb)
}

// Search looks up objects of objectType (post, user, page, event, group, place,
// checkin) matching query.
func (c *Client) Search(ctx context.Context, objectType, query string, dest *graph.List, cb queue.ResponseListener) (*queue.Job, error) {
	req := c.graphRequest("", graph.ConnectionSearch, false)
	req.AddArgument("q", query)
	req.AddArgument("type", objectType)
	return c.issue(ctx, req, dest, cb)
}

// GetUsersDetails fetches fields of several users in one legacy REST call.
func (c *Client) GetUsersDetails(ctx context.Context, ids, fields []string, cb queue.ResponseListener) (*queue.Job, error) {
	req := c.methodRequest("users.getInfo")
	req.AddArgumentNoEncoding("uids", strings.Join(ids, ","))
	req.AddArgumentNoEncoding("fields", strings.Join(fields, ","))
	req.AddArgument("format", "json")
	return c.issue(ctx, req, nil, cb)
}

// GetUserNotifications lists the token owner's notifications updated since startTime
// into dest. An empty startTime returns all available notifications.
func (c *Client) GetUserNotifications(ctx context.Context, startTime string, includeRead bool, dest *graph.List, cb queue.ResponseListener) (*queue.Job, error) {
	req := c.methodRequest("notifications.getList")
	req.AddArgument("start_time", startTime)
	req.AddArgument("include_read", strconv.FormatBool(includeRead))
	req.AddArgument("format", "json")
	return c.issue(ctx, req, dest, cb)
}

// write issues a write request and waits for the queue to finish it.
func (c *Client) write(ctx context.Context, req *graph.Request) error {
	job, err := c.issue(ctx, req, nil, nil)
	if err != nil {
		return err
	}
	_, err = job.Wait(ctx)
	return err
}

// PostOnWall posts message on the user's wall.
func (c *Client) PostOnWall(ctx context.Context, userID, message string) error {
	req := c.graphRequest(meIfEmpty(userID), graph.ConnectionFeed, true)
	req.AddArgument("message", message)
	return c.write(ctx, req)
}

// PostLike likes a post.
func (c *Client) PostLike(ctx context.Context, postID string) error {
	if postID == "" {
		return ErrEmptyID
	}
	return c.write(ctx, c.graphRequest(postID, graph.ConnectionLikes, true))
}

// PostComment comments on a post.
func (c *Client) PostComment(ctx context.Context, postID, message string) error {
	if postID == "" {
		return ErrEmptyID
	}
	req := c.graphRequest(postID, graph.ConnectionComments, true)
	req.AddArgument("message", message)
	return c.write(ctx, req)
}

// CreateObjectsModel converts the raw records of list into typed objects of kind.
func CreateObjectsModel(list *graph.List, kind graph.Kind) ([]graph.Object, error) {
	if list == nil {
		return nil, nil
	}
	return graph.CreateObjects(list.Items(), kind)
}
