package access

import (
	"context"

	"Fbaccess/internal/core/graph"
	"Fbaccess/internal/core/images"
)

const (
	pictureSmall     = "small"
	pictureThumbnail = "thumbnail"
)

// PictureURL returns the download URL of the picture of id at the given size type.
func (c *Client) PictureURL(id, size string) string {
	req := c.graphRequest(id, graph.ConnectionPicture, false)
	req.AddArgument("type", size)
	return req.URL()
}

func (c *Client) pictureSource(id, size string, temp bool) (url, cacheKey string, err error) {
	if c.images == nil {
		return "", "", ErrNoImageService
	}
	if id == "" {
		return "", "", ErrEmptyID
	}
	return c.PictureURL(id, size), images.CacheKey(c.images.Storage(), id, temp), nil
}

// GetPicture loads the profile picture of id into target, scaled to scale.
func (c *Client) GetPicture(ctx context.Context, id string, target images.Target, scale images.Dimension, temp bool) error {
	url, key, err := c.pictureSource(id, pictureSmall, temp)
	if err != nil {
		return err
	}
	c.images.ToTarget(ctx, url, target, key, scale)
	return nil
}

// GetPictureCallback loads the profile picture of id and hands it to cb.
func (c *Client) GetPictureCallback(ctx context.Context, id string, cb images.Callback, temp bool) error {
	url, key, err := c.pictureSource(id, pictureSmall, temp)
	if err != nil {
		return err
	}
	c.images.ToCallback(ctx, url, cb, key)
	return nil
}

// GetPictureToList loads the profile picture of id into entry offset of list under key.
func (c *Client) GetPictureToList(ctx context.Context, id string, list images.ListTarget, offset int, key string, scale images.Dimension, temp bool) error {
	url, cacheKey, err := c.pictureSource(id, pictureSmall, temp)
	if err != nil {
		return err
	}
	c.images.ToList(ctx, url, list, offset, key, cacheKey, scale)
	return nil
}

// GetPhotoThumbnail loads the thumbnail of a photo into target, scaled to scale.
func (c *Client) GetPhotoThumbnail(ctx context.Context, photoID string, target images.Target, scale images.Dimension, temp bool) error {
	url, key, err := c.pictureSource(photoID, pictureThumbnail, temp)
	if err != nil {
		return err
	}
	c.images.ToTarget(ctx, url, target, key, scale)
	return nil
}

// GetPhotoThumbnailCallback loads the thumbnail of a photo and hands it to cb.
func (c *Client) GetPhotoThumbnailCallback(ctx context.Context, photoID string, cb images.Callback, temp bool) error {
	url, key, err := c.pictureSource(photoID, pictureThumbnail, temp)
	if err != nil {
		return err
	}
	c.images.ToCallback(ctx, url, cb, key)
	return nil
}
