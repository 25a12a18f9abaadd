// Package auth runs the Graph API OAuth2 login: it builds the dialog URL, lets an
// Authorizer drive the browser, and turns the redirect into an access token.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Authorizer shows the authorization dialog to the user and returns the redirect URL the
// browser finally landed on.
type Authorizer interface {
	Authorize(ctx context.Context, authURL, state string) (*url.URL, error)
}

// Authenticator performs the login flow against the Graph API OAuth endpoints.
type Authenticator struct {
	graphURL     string
	clientSecret string
	authorizer   Authorizer
	httpClient   *http.Client
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClientSecret switches to the authorization-code flow: the redirect's code is
// exchanged for a token. Without a secret the implicit flow is used.
func WithClientSecret(secret string) Option {
	return func(a *Authenticator) {
		a.clientSecret = secret
	}
}

// WithHTTPClient sets the client used for the code exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = client
	}
}

// NewAuthenticator creates an Authenticator for the Graph API at graphURL.
func NewAuthenticator(graphURL string, authorizer Authorizer, opts ...Option) (*Authenticator, error) {
	if authorizer == nil {
		return nil, ErrNilAuthorizer
	}
	a := &Authenticator{
		graphURL:   strings.TrimRight(graphURL, "/"),
		authorizer: authorizer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Authenticator) config(clientID, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: a.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.graphURL + "/oauth/authorize",
			TokenURL:  a.graphURL + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL returns the dialog URL. Permissions are sent comma-joined in scope, which
// is left out when there are none, and the dialog is requested in its compact display.
func (a *Authenticator) AuthCodeURL(state, clientID, redirectURI string, permissions []string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("display", "wap")}
	if len(permissions) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(permissions, ",")))
	}
	if a.clientSecret == "" {
		opts = append(opts, oauth2.SetAuthURLParam("response_type", "token"))
	}
	return a.config(clientID, redirectURI).AuthCodeURL(state, opts...)
}

// Authenticate runs the login flow and returns the access token.
func (a *Authenticator) Authenticate(ctx context.Context, clientID, redirectURI string, permissions []string) (string, error) {
	if clientID == "" {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, ErrMissingClientID)
	}

	state := uuid.NewString()
	authURL := a.AuthCodeURL(state, clientID, redirectURI, permissions)

	slog.Info("[FB-AUTH] starting login", "client_id", clientID, "permissions", len(permissions))

	redirect, err := a.authorizer.Authorize(ctx, authURL, state)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	token, err := a.tokenFromRedirect(ctx, redirect, state, clientID, redirectURI)
	if err != nil {
		slog.Warn("[FB-AUTH] login failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	slog.Info("[FB-AUTH] login completed", "client_id", clientID)
	return token, nil
}

func (a *Authenticator) tokenFromRedirect(ctx context.Context, redirect *url.URL, state, clientID, redirectURI string) (string, error) {
	if redirect == nil {
		return "", ErrNoToken
	}

	params := redirect.Query()
	if redirect.Fragment != "" {
		fragment, err := url.ParseQuery(redirect.Fragment)
		if err != nil {
			return "", fmt.Errorf("%w: malformed fragment: %v", ErrNoToken, err)
		}
		for k, v := range fragment {
			params[k] = v
		}
	}

	if e := params.Get("error"); e != "" {
		reason := params.Get("error_description")
		if reason == "" {
			reason = params.Get("error_reason")
		}
		return "", fmt.Errorf("%w: %s: %s", ErrAuthorizationDenied, e, reason)
	}

	if got := params.Get("state"); got != "" && got != state {
		return "", ErrStateMismatch
	}

	if token := params.Get("access_token"); token != "" {
		return token, nil
	}

	code := params.Get("code")
	if code == "" || a.clientSecret == "" {
		return "", ErrNoToken
	}

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}
	tok, err := a.config(clientID, redirectURI).Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("code exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}
	return tok.AccessToken, nil
}
