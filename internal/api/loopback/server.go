// Package loopback serves the OAuth redirect on a local port so command-line tools can
// log in through the user's browser.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"Fbaccess/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

const (
	sessionName = "fb_login"
	stateKey    = "state"
)

// Opener shows a URL to the user, e.g. by launching a browser.
type Opener func(loginURL string) error

// Server implements auth.Authorizer with a local HTTP listener.
type Server struct {
	addr    string
	store   *sessions.CookieStore
	opener  Opener
	limiter *middleware.RateLimiter

	mu       sync.Mutex
	pending  *pendingLogin
	listener net.Listener
	srv      *http.Server
}

type pendingLogin struct {
	authURL string
	state   string
	result  chan *url.URL
}

// Option configures a Server.
type Option func(*Server)

// WithOpener sets how the login URL reaches the user. The default logs it.
func WithOpener(o Opener) Option {
	return func(s *Server) {
		if o != nil {
			s.opener = o
		}
	}
}

// NewServer creates a Server that will listen on addr. The cookie secret signs the
// session that carries the OAuth state between /login and /callback.
func NewServer(addr, cookieSecret string, opts ...Option) (*Server, error) {
	if len(cookieSecret) < MinCookieSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrCookieSecretTooShort, MinCookieSecretLength)
	}

	store := sessions.NewCookieStore([]byte(cookieSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	s := &Server{
		addr:  addr,
		store: store,
		opener: func(loginURL string) error {
			slog.Info("[FB-LOOPBACK] open this URL in a browser to log in", "url", loginURL)
			return nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the router serving /login and /callback.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	if s.limiter == nil {
		s.limiter = middleware.NewRateLimiter(30, time.Minute)
	}
	limiter := s.limiter
	s.mu.Unlock()

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(limiter.Middleware)

	r.Get("/login", s.handleLogin)
	r.Get("/callback", s.handleCallback)
	return r
}

// Start begins listening. It returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.listener = ln
	s.srv = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[FB-LOOPBACK] server stopped", "error", err)
		}
	}()

	slog.Info("[FB-LOOPBACK] listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	limiter := s.limiter
	s.mu.Unlock()

	if limiter != nil {
		limiter.Stop()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// BaseURL returns the root URL of the running server, or "" before Start.
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return "http://" + s.listener.Addr().String()
}

// RedirectURI returns the callback URL to register with the OAuth dialog.
func (s *Server) RedirectURI() string {
	base := s.BaseURL()
	if base == "" {
		return ""
	}
	return base + "/callback"
}

// Authorize opens the login page and waits for the browser to come back to /callback.
func (s *Server) Authorize(ctx context.Context, authURL, state string) (*url.URL, error) {
	base := s.BaseURL()
	if base == "" {
		return nil, ErrNotStarted
	}

	login := &pendingLogin{authURL: authURL, state: state, result: make(chan *url.URL, 1)}

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return nil, ErrAuthorizationInProgress
	}
	s.pending = login
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	}()

	if err := s.opener(base + "/login"); err != nil {
		return nil, fmt.Errorf("failed to open login page: %w", err)
	}

	select {
	case u := <-login.result:
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) current() *pendingLogin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	login := s.current()
	if login == nil {
		http.Error(w, "No login in progress", http.StatusNotFound)
		return
	}

	// A stale or foreign cookie yields a fresh session; the error is not fatal.
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		slog.Debug("[FB-LOOPBACK] discarding unreadable session", "error", err)
	}
	session.Values[stateKey] = login.state
	if err := session.Save(r, w); err != nil {
		slog.Error("[FB-LOOPBACK] failed to save session", "error", err)
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, login.authURL, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	// The implicit flow puts the token in the fragment, which browsers never send.
	// The relay page moves it into the query and comes back.
	if r.URL.RawQuery == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := relayPage.Execute(w, nil); err != nil {
			slog.Error("[FB-LOOPBACK] failed to render relay page", "error", err)
		}
		return
	}

	login := s.current()
	if login == nil {
		http.Error(w, "No login in progress", http.StatusNotFound)
		return
	}

	session, err := s.store.Get(r, sessionName)
	if err != nil || session.Values[stateKey] != login.state {
		slog.Warn("[FB-LOOPBACK] callback without a matching login session", "remote", r.RemoteAddr)
		http.Error(w, "Invalid login session", http.StatusBadRequest)
		return
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Warn("[FB-LOOPBACK] failed to clear session", "error", err)
	}

	callback := *r.URL
	callback.Scheme = "http"
	callback.Host = r.Host

	select {
	case login.result <- &callback:
	default:
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := donePage.Execute(w, nil); err != nil {
		slog.Error("[FB-LOOPBACK] failed to render completion page", "error", err)
	}
}

var relayPage = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html><head><title>Logging in</title></head>
<body>
<p>Completing login...</p>
<script>
if (window.location.hash.length > 1) {
  window.location.replace(window.location.pathname + "?" + window.location.hash.substring(1));
}
</script>
</body></html>
`))

var donePage = template.Must(template.New("done").Parse(`<!DOCTYPE html>
<html><head><title>Logged in</title></head>
<body><p>Login complete. You can close this window.</p></body></html>
`))
