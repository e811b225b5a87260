// Package downloader fetches image bytes through the run's session client.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

const maxImageSize = 64 << 20

var (
	ErrNotImage = errors.New("not an image")
	ErrTooLarge = errors.New("image too large")
)

// Image is a downloaded image. Ext has no leading dot.
type Image struct {
	URL  string
	Data []byte
	MIME string
	Ext  string
}

type Client struct {
	client *http.Client
	log    *zap.Logger
}

func New(c *http.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: c, log: log.Named("downloader")}
}

// Fetch downloads one image. progress, when set, receives the running byte
// count.
func (d *Client) Fetch(ctx context.Context, u, referer string, progress func(done int64)) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Image{}, err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return Image{}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.log.Debug("closing image body", zap.String("url", u), zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var headerMIME string
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, _ := mime.ParseMediaType(ct)
		if !strings.HasPrefix(mt, "image/") && mt != "application/octet-stream" {
			return Image{}, fmt.Errorf("%w: unexpected MIME %s", ErrNotImage, ct)
		}
		headerMIME = mt
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 && resp.ContentLength <= maxImageSize {
		buf.Grow(int(resp.ContentLength))
	}

	n, err := copyWithProgress(&buf, io.LimitReader(resp.Body, maxImageSize+1), progress)
	if err != nil {
		return Image{}, err
	}
	if n > maxImageSize {
		return Image{}, ErrTooLarge
	}

	img := Image{URL: u, Data: buf.Bytes()}
	if err := sniff(&img, headerMIME); err != nil {
		return Image{}, err
	}

	d.log.Debug("image fetched",
		zap.String("url", u), zap.String("mime", img.MIME), zap.Int64("bytes", n))

	return img, nil
}

// sniff fills MIME and Ext from the payload. SVG has no magic number, so the
// header type is trusted for it.
func sniff(img *Image, headerMIME string) error {
	kind, _ := filetype.Match(img.Data)
	if kind != filetype.Unknown && filetype.IsImage(img.Data) {
		img.MIME = kind.MIME.Value
		img.Ext = kind.Extension
		return nil
	}

	if headerMIME == "image/svg+xml" {
		img.MIME = headerMIME
		img.Ext = "svg"
		return nil
	}

	return ErrNotImage
}
