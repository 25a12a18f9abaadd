package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Connection is a Graph API sub-resource under an object id.
type Connection string

const (
	ConnectionSelf     Connection = ""
	ConnectionFeed     Connection = "feed"
	ConnectionHome     Connection = "home"
	ConnectionFriends  Connection = "friends"
	ConnectionAlbums   Connection = "albums"
	ConnectionPhotos   Connection = "photos"
	ConnectionComments Connection = "comments"
	ConnectionLikes    Connection = "likes"
	ConnectionInbox    Connection = "inbox"
	ConnectionEvents   Connection = "events"
	ConnectionPicture  Connection = "picture"
	ConnectionSearch   Connection = "search"
)

const (
	// DefaultGraphURL is the Graph API base.
	DefaultGraphURL = "https://graph.facebook.com"
	// DefaultRESTURL is the legacy REST API method base.
	DefaultRESTURL = "https://api.facebook.com/method"
)

type argument struct {
	key    string
	value  string
	encode bool
}

// Request describes a single outbound call. It is built per operation and discarded
// after completion.
type Request struct {
	target     string
	connection Connection
	write      bool
	args       []argument
}

// NewGraphRequest targets base/id/connection. An empty connection addresses the object
// itself. write selects POST over GET.
func NewGraphRequest(base, token, id string, connection Connection, write bool) *Request {
	target := strings.TrimRight(base, "/")
	if id != "" {
		target += "/" + id
	}
	req := &Request{target: target, connection: connection, write: write}
	req.addToken(token)
	return req
}

// NewMethodRequest targets a legacy REST API method such as "users.getInfo".
// A method that is already an absolute URL is used as is.
func NewMethodRequest(restBase, method, token string, write bool) *Request {
	target := method
	if !strings.HasPrefix(method, "http://") && !strings.HasPrefix(method, "https://") {
		target = strings.TrimRight(restBase, "/") + "/" + method
	}
	req := &Request{target: target, write: write}
	req.addToken(token)
	return req
}

func (r *Request) addToken(token string) {
	if token != "" {
		r.AddArgument("access_token", token)
	}
}

// AddArgument adds a URL-encoded argument.
func (r *Request) AddArgument(key, value string) {
	r.args = append(r.args, argument{key: key, value: value, encode: true})
}

// AddArgumentNoEncoding adds an argument whose value is sent verbatim. Used for
// comma-joined id and field lists, where an encoded comma is rejected.
func (r *Request) AddArgumentNoEncoding(key, value string) {
	r.args = append(r.args, argument{key: key, value: value})
}

// Argument returns the first value stored for key.
func (r *Request) Argument(key string) (string, bool) {
	for _, a := range r.args {
		if a.key == key {
			return a.value, true
		}
	}
	return "", false
}

// Write reports whether the request is a write.
func (r *Request) Write() bool {
	return r.write
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	if r.write {
		return http.MethodPost
	}
	return http.MethodGet
}

// Endpoint returns the target plus connection, without arguments.
func (r *Request) Endpoint() string {
	if r.connection == ConnectionSelf {
		return r.target
	}
	return r.target + "/" + string(r.connection)
}

// Query returns the arguments in insertion order, encoding those added with AddArgument.
func (r *Request) Query() string {
	var b strings.Builder
	for i, a := range r.args {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(a.key))
		b.WriteByte('=')
		if a.encode {
			b.WriteString(url.QueryEscape(a.value))
		} else {
			b.WriteString(a.value)
		}
	}
	return b.String()
}

// URL returns the full request URL. Picture fetches use it directly as a download URL.
func (r *Request) URL() string {
	q := r.Query()
	if q == "" {
		return r.Endpoint()
	}
	return r.Endpoint() + "?" + q
}

// HTTPRequest builds the outbound request. Reads carry the arguments in the query
// string; writes carry them as a form body.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	if r.target == "" {
		return nil, ErrEmptyTarget
	}
	if !r.write {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		return req, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint(), strings.NewReader(r.Query()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
