package access

import (
	"context"
	"net/url"
	"testing"

	"Fbaccess/internal/core/images"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTarget struct {
	mock.Mock
	done chan struct{}
}

func (m *mockTarget) SetImage(data []byte) {
	m.Called(data)
	m.done <- struct{}{}
}

type mockListTarget struct {
	mock.Mock
	done chan struct{}
}

func (m *mockListTarget) SetItemImage(offset int, key string, data []byte) {
	m.Called(offset, key, data)
	m.done <- struct{}{}
}

func TestClient_PictureURL(t *testing.T) {
	c := newTestClient(t, &fakeGraph{})

	u, err := url.Parse(c.PictureURL("4", pictureSmall))
	require.NoError(t, err)
	assert.Equal(t, "/4/picture", u.Path)
	assert.Equal(t, "small", u.Query().Get("type"))
	assert.Equal(t, "tok", u.Query().Get("access_token"))
}

func TestClient_GetPicture_TempCacheKey(t *testing.T) {
	fake := &fakeGraph{responses: map[string]string{"/4/picture": "avatar-bytes"}}
	c := newTestClient(t, fake)
	storage := c.images.Storage()

	target := &mockTarget{done: make(chan struct{}, 1)}
	target.On("SetImage", []byte("avatar-bytes")).Once()

	require.NoError(t, c.GetPicture(context.Background(), "4", target, images.Dimension{}, true))
	waitFor(t, target.done)
	target.AssertExpectations(t)

	assert.True(t, storage.Exists("temp4"))
	assert.False(t, storage.Exists("4"))
	assert.Equal(t, "small", mustQuery(t, fake.last(t).RawQuery).Get("type"))
}

func TestClient_GetPicture_TempReusesPermanentCopy(t *testing.T) {
	fake := &fakeGraph{}
	c := newTestClient(t, fake)
	storage := c.images.Storage()
	require.NoError(t, storage.Set("5", []byte("permanent")))

	target := &mockTarget{done: make(chan struct{}, 1)}
	target.On("SetImage", []byte("permanent")).Once()

	require.NoError(t, c.GetPicture(context.Background(), "5", target, images.Dimension{}, true))
	waitFor(t, target.done)
	target.AssertExpectations(t)

	assert.False(t, storage.Exists("temp5"))
	fake.mu.Lock()
	assert.Empty(t, fake.requests, "served from storage without a download")
	fake.mu.Unlock()
}

func TestClient_GetPictureCallback(t *testing.T) {
	fake := &fakeGraph{responses: map[string]string{"/6/picture": "cb-bytes"}}
	c := newTestClient(t, fake)

	type result struct {
		data []byte
		err  error
	}
	got := make(chan result, 1)
	require.NoError(t, c.GetPictureCallback(context.Background(), "6", func(data []byte, err error) {
		got <- result{data, err}
	}, false))

	r := waitFor(t, got)
	require.NoError(t, r.err)
	assert.Equal(t, []byte("cb-bytes"), r.data)
	assert.True(t, c.images.Storage().Exists("6"))
}

func TestClient_GetPictureToList(t *testing.T) {
	fake := &fakeGraph{responses: map[string]string{"/7/picture": "friend-bytes"}}
	c := newTestClient(t, fake)

	list := &mockListTarget{done: make(chan struct{}, 1)}
	list.On("SetItemImage", 2, "icon", []byte("friend-bytes")).Once()

	require.NoError(t, c.GetPictureToList(context.Background(), "7", list, 2, "icon", images.Dimension{}, true))
	waitFor(t, list.done)
	list.AssertExpectations(t)
}

func TestClient_GetPhotoThumbnail(t *testing.T) {
	fake := &fakeGraph{responses: map[string]string{"/ph1/picture": "thumb-bytes"}}
	c := newTestClient(t, fake)

	target := &mockTarget{done: make(chan struct{}, 1)}
	target.On("SetImage", []byte("thumb-bytes")).Once()

	require.NoError(t, c.GetPhotoThumbnail(context.Background(), "ph1", target, images.Dimension{}, false))
	waitFor(t, target.done)
	target.AssertExpectations(t)
	assert.Equal(t, "thumbnail", mustQuery(t, fake.last(t).RawQuery).Get("type"))

	got := make(chan []byte, 1)
	require.NoError(t, c.GetPhotoThumbnailCallback(context.Background(), "ph1", func(data []byte, err error) {
		got <- data
	}, false))
	assert.Equal(t, []byte("thumb-bytes"), waitFor(t, got))
}

func TestClient_Pictures_Preconditions(t *testing.T) {
	c := newTestClient(t, &fakeGraph{})
	assert.ErrorIs(t, c.GetPictureCallback(context.Background(), "", func([]byte, error) {}, false), ErrEmptyID)

	noImages, err := NewClient(DefaultConfig(), c.queue, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, noImages.GetPicture(context.Background(), "1", nil, images.Dimension{}, false), ErrNoImageService)
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	q, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return q
}
