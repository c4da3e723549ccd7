package importer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth        = 800
	jpegQuality          = 80
	defaultFetchTimeout  = 15 * time.Second
	defaultMaxAssetBytes = 10 << 20 // 10MB
)

// AssetFetcher downloads remote assets with a bounded timeout and size cap,
// so one slow or oversized image cannot stall the batch.
type AssetFetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

// NewAssetFetcher returns a fetcher using client, or http.DefaultClient if
// client is nil.
func NewAssetFetcher(client *http.Client, timeout time.Duration, maxBytes int64) *AssetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &AssetFetcher{Client: client, Timeout: timeout, MaxBytes: maxBytes}
}

// Fetch downloads rawURL and returns the body bytes.
func (f *AssetFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	limit := f.maxBytes()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", rawURL, limit)
	}
	return data, nil
}

func (f *AssetFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *AssetFetcher) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return defaultFetchTimeout
}

func (f *AssetFetcher) maxBytes() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return defaultMaxAssetBytes
}

// encodeImage decodes a fetched image, resizes it to at most maxImageWidth,
// and re-encodes it as JPEG. Re-encoding normalizes whatever the source
// blog served into one predictable format at a predictable size.
func encodeImage(src []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
