package graph

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphRequest_URL(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		connection Connection
		token      string
		want       string
	}{
		{"object", "123", ConnectionSelf, "", "https://graph.facebook.com/123"},
		{"connection", "123", ConnectionFriends, "", "https://graph.facebook.com/123/friends"},
		{"with token", "me", ConnectionFeed, "abc", "https://graph.facebook.com/me/feed?access_token=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewGraphRequest(DefaultGraphURL, tt.token, tt.id, tt.connection, false)
			assert.Equal(t, tt.want, req.URL())
			assert.Equal(t, http.MethodGet, req.Method())
		})
	}
}

func TestRequest_ArgumentEncoding(t *testing.T) {
	req := NewMethodRequest(DefaultRESTURL, "users.getInfo", "", false)
	req.AddArgumentNoEncoding("uids", "1,2,3")
	req.AddArgumentNoEncoding("fields", "name,pic")
	req.AddArgument("format", "json")
	req.AddArgument("q", "a b,c")

	assert.Equal(t,
		"https://api.facebook.com/method/users.getInfo?uids=1,2,3&fields=name,pic&format=json&q=a+b%2Cc",
		req.URL())

	v, ok := req.Argument("uids")
	assert.True(t, ok)
	assert.Equal(t, "1,2,3", v)
}

func TestNewMethodRequest_AbsoluteURL(t *testing.T) {
	req := NewMethodRequest(DefaultRESTURL, "https://api.facebook.com/method/notifications.getList", "t", false)
	assert.Equal(t, "https://api.facebook.com/method/notifications.getList?access_token=t", req.URL())
}

func TestRequest_HTTPRequest_Write(t *testing.T) {
	req := NewGraphRequest(DefaultGraphURL, "tok", "123", ConnectionFeed, true)
	req.AddArgument("message", "hello world")

	assert.Equal(t, http.MethodPost, req.Method())
	assert.Equal(t, "https://graph.facebook.com/123/feed?access_token=tok&message=hello+world", req.URL())

	httpReq, err := req.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, httpReq.Method)
	assert.Equal(t, "https://graph.facebook.com/123/feed", httpReq.URL.String())
	assert.Equal(t, "application/x-www-form-urlencoded", httpReq.Header.Get("Content-Type"))

	body, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	assert.Equal(t, "access_token=tok&message=hello+world", string(body))
}

func TestRequest_HTTPRequest_Read(t *testing.T) {
	req := NewGraphRequest(DefaultGraphURL, "", "123", ConnectionPicture, false)
	req.AddArgument("type", "small")

	httpReq, err := req.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, httpReq.Method)
	assert.Equal(t, "small", httpReq.URL.Query().Get("type"))
	assert.Equal(t, "/123/picture", httpReq.URL.Path)
}

func TestRequest_HTTPRequest_EmptyTarget(t *testing.T) {
	req := NewGraphRequest("", "", "", ConnectionSelf, false)
	_, err := req.HTTPRequest(context.Background())
	assert.ErrorIs(t, err, ErrEmptyTarget)
}
