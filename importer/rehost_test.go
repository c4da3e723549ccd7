package importer

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewAssetFetcher(nil, time.Second, 1<<20)
	_, err := f.Fetch(context.Background(), srv.URL+"/img.jpg")
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFetchEnforcesSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 100))
	}))
	defer srv.Close()

	f := NewAssetFetcher(nil, time.Second, 10)
	_, err := f.Fetch(context.Background(), srv.URL+"/big.jpg")
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size cap error, got %v", err)
	}
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewAssetFetcher(srv.Client(), time.Second, 1<<20)
	data, err := f.Fetch(context.Background(), srv.URL+"/a")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("body = %q", data)
	}
}

func TestEncodeImageResizesAndReencodes(t *testing.T) {
	// Wider than maxImageWidth so the resize path runs.
	src := image.NewRGBA(image.Rect(0, 0, maxImageWidth*2, 100))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	data, err := encodeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("encodeImage failed: %v", err)
	}

	out, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if w := out.Bounds().Dx(); w != maxImageWidth {
		t.Errorf("output width = %d, want %d", w, maxImageWidth)
	}
}

func TestEncodeImageRejectsNonImage(t *testing.T) {
	if _, err := encodeImage([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAssetPathIsDeterministic(t *testing.T) {
	// A canonical slug is the path, verbatim.
	if got := AssetPath("my-post"); got != "uploads/my-post.jpg" {
		t.Errorf("AssetPath = %q", got)
	}
	if AssetPath("My Post") != AssetPath("My Post") {
		t.Error("AssetPath must be stable across calls")
	}
}

func TestAssetPathDistinctSlugsDistinctPaths(t *testing.T) {
	// Slugs that clean to the same token must still get separate paths,
	// or one import would silently overwrite the other's image.
	pairs := [][2]string{
		{"post%201", "post-201"},
		{"My Post", "my-post"},
		{"a--b", "a-b"},
	}
	for _, p := range pairs {
		if AssetPath(p[0]) == AssetPath(p[1]) {
			t.Errorf("AssetPath(%q) == AssetPath(%q) = %q", p[0], p[1], AssetPath(p[0]))
		}
	}
}
