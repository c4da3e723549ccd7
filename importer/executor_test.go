package importer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eringen/wximport/wxr"
)

func testExecutor(store *fakeStore, storage *fakeStorage) *Executor {
	return &Executor{
		Store:     store,
		Storage:   storage,
		Sanitizer: fakeSanitizer{},
		Assets:    NewAssetFetcher(nil, time.Second, 1<<20),
		Workers:   2,
		Logger:    log.New(io.Discard, "", 0),
	}
}

func candidate(slug, title, content string) wxr.Candidate {
	return wxr.Candidate{
		Slug:        slug,
		Title:       title,
		Content:     content,
		Status:      wxr.StatusPublished,
		PublishedAt: time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRunImportsNewCandidates(t *testing.T) {
	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())

	out := e.Run(context.Background(), []wxr.Candidate{
		candidate("a", "A", "<p>a</p>"),
		candidate("b", "B", "<p>b</p>"),
	}, PolicySkip, "admin")

	if out.SuccessCount != 2 || out.SkipCount != 0 || out.ErrorCount != 0 {
		t.Fatalf("outcome = %+v, want 2 successes", out)
	}
	rec, ok := store.get("a")
	if !ok {
		t.Fatal("record a not persisted")
	}
	if rec.Author != "admin" {
		t.Errorf("Author = %q, want admin", rec.Author)
	}
	if !rec.Published {
		t.Error("published candidate should persist as published")
	}
}

func TestRunSkipPolicyRoundTrip(t *testing.T) {
	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())
	c := candidate("a", "A", "<p>first run</p>")

	first := e.Run(context.Background(), []wxr.Candidate{c}, PolicySkip, "admin")
	if first.SuccessCount != 1 {
		t.Fatalf("first run outcome = %+v", first)
	}

	c.Content = "<p>second run</p>"
	second := e.Run(context.Background(), []wxr.Candidate{c}, PolicySkip, "admin")
	if second.SuccessCount != 0 || second.SkipCount != 1 || second.ErrorCount != 0 {
		t.Fatalf("second run outcome = %+v, want 1 skip", second)
	}

	if store.count() != 1 {
		t.Fatalf("store has %d records, want 1", store.count())
	}
	rec, _ := store.get("a")
	if rec.Content != "<p>first run</p>" {
		t.Errorf("skip policy must not touch the existing record, content = %q", rec.Content)
	}
}

func TestRunOverwritePolicyRoundTrip(t *testing.T) {
	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())
	c := candidate("a", "A", "<p>first run</p>")

	e.Run(context.Background(), []wxr.Candidate{c}, PolicyOverwrite, "admin")

	c.Title = "A updated"
	c.Content = "<p>second run</p>"
	second := e.Run(context.Background(), []wxr.Candidate{c}, PolicyOverwrite, "admin")
	if second.SuccessCount != 1 || second.SkipCount != 0 || second.ErrorCount != 0 {
		t.Fatalf("second run outcome = %+v, want 1 success", second)
	}

	if store.count() != 1 {
		t.Fatalf("store has %d records, want 1", store.count())
	}
	rec, _ := store.get("a")
	if rec.Title != "A updated" || rec.Content != "<p>second run</p>" {
		t.Errorf("overwrite should replace fields, got %+v", rec)
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())

	out := e.Run(context.Background(), []wxr.Candidate{
		candidate("a", "A", "<p>fine</p>"),
		candidate("b", "Broken B", "UNSANITIZABLE"),
		candidate("c", "C", "<p>fine</p>"),
	}, PolicySkip, "admin")

	if out.SuccessCount != 2 || out.ErrorCount != 1 {
		t.Fatalf("outcome = %+v, want 2 successes and 1 error", out)
	}
	if len(out.Errors) != 1 || out.Errors[0].Title != "Broken B" {
		t.Fatalf("errors = %+v, want one entry for Broken B", out.Errors)
	}
	if _, ok := store.get("a"); !ok {
		t.Error("record a should be persisted despite b failing")
	}
	if _, ok := store.get("c"); !ok {
		t.Error("record c should be persisted despite b failing")
	}
	if _, ok := store.get("b"); ok {
		t.Error("failed record b must not be persisted")
	}
}

func TestRunRehostsFeaturedImage(t *testing.T) {
	img := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	store := newFakeStore()
	storage := newFakeStorage()
	e := testExecutor(store, storage)

	c := candidate("with-image", "Img", "<p>x</p>")
	c.FeaturedImageURL = srv.URL + "/old.png"

	out := e.Run(context.Background(), []wxr.Candidate{c}, PolicyOverwrite, "admin")
	if out.SuccessCount != 1 || out.ErrorCount != 0 {
		t.Fatalf("outcome = %+v", out)
	}

	rec, _ := store.get("with-image")
	want := "https://cdn.test/uploads/with-image.jpg"
	if rec.FeaturedImage != want {
		t.Errorf("FeaturedImage = %q, want %q", rec.FeaturedImage, want)
	}

	// Re-importing the same slug must overwrite the same asset path, never
	// accumulate a second object.
	e.Run(context.Background(), []wxr.Candidate{c}, PolicyOverwrite, "admin")
	if paths := storage.paths(); len(paths) != 1 || paths[0] != "uploads/with-image.jpg" {
		t.Errorf("storage paths = %v, want exactly [uploads/with-image.jpg]", paths)
	}
}

func TestRunContinuesWithoutImageOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())

	c := candidate("no-image", "NoImg", "<p>x</p>")
	c.FeaturedImageURL = srv.URL + "/gone.jpg"

	out := e.Run(context.Background(), []wxr.Candidate{c}, PolicySkip, "admin")
	if out.SuccessCount != 1 || out.ErrorCount != 0 {
		t.Fatalf("a missing image is not an import error, outcome = %+v", out)
	}
	rec, _ := store.get("no-image")
	if rec.FeaturedImage != "" {
		t.Errorf("FeaturedImage = %q, want empty", rec.FeaturedImage)
	}
}

func TestRunConvertsLateDuplicateInsert(t *testing.T) {
	// Hiding the pre-seeded record from the duplicate check makes the
	// insert itself trip over the uniqueness constraint.
	store := newFakeStore()
	store.seed("raced", "Old title")
	store.blindChecks = 1
	e := testExecutor(store, newFakeStorage())
	c := candidate("raced", "New title", "<p>new</p>")

	out := e.Run(context.Background(), []wxr.Candidate{c}, PolicySkip, "admin")
	if out.SkipCount != 1 || out.ErrorCount != 0 {
		t.Fatalf("late duplicate under skip: outcome = %+v, want 1 skip", out)
	}

	store.blindChecks = 1
	out = e.Run(context.Background(), []wxr.Candidate{c}, PolicyOverwrite, "admin")
	if out.SuccessCount != 1 || out.ErrorCount != 0 {
		t.Fatalf("late duplicate under overwrite: outcome = %+v, want 1 success", out)
	}
}

func TestRunStopsDispatchWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())

	out := e.Run(ctx, []wxr.Candidate{
		candidate("a", "A", "x"),
		candidate("b", "B", "x"),
	}, PolicySkip, "admin")

	if out.SuccessCount != 0 || out.SkipCount != 0 || out.ErrorCount != 0 {
		t.Fatalf("cancelled batch should dispatch nothing, outcome = %+v", out)
	}
	if store.count() != 0 {
		t.Fatalf("store has %d records, want 0", store.count())
	}
}

// gateSanitizer blocks its first call until released, so a test can hold
// the single worker busy while the batch is cancelled.
type gateSanitizer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateSanitizer) Sanitize(raw string) (string, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return raw, nil
}

func TestRunSkipsItemsHeldBackByCancel(t *testing.T) {
	store := newFakeStore()
	gate := &gateSanitizer{started: make(chan struct{}), release: make(chan struct{})}
	e := testExecutor(store, newFakeStorage())
	e.Sanitizer = gate
	e.Workers = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() {
		done <- e.Run(ctx, []wxr.Candidate{
			candidate("a", "A", "<p>a</p>"),
			candidate("b", "B", "<p>b</p>"),
		}, PolicySkip, "admin")
	}()

	// With one worker, b is queued behind a. Cancelling while a is in
	// flight must keep b from ever starting, even though it was handed to
	// the worker pool before the cancel landed.
	<-gate.started
	cancel()
	close(gate.release)

	out := <-done
	if out.SuccessCount != 1 || out.SkipCount != 0 || out.ErrorCount != 0 {
		t.Fatalf("outcome = %+v, want only the in-flight item to finish", out)
	}
	if _, ok := store.get("a"); !ok {
		t.Error("in-flight record a should run to completion")
	}
	if _, ok := store.get("b"); ok {
		t.Error("record b was dispatched after cancellation")
	}
}

func TestRunRejectsSluglessCandidate(t *testing.T) {
	store := newFakeStore()
	e := testExecutor(store, newFakeStorage())

	out := e.Run(context.Background(), []wxr.Candidate{
		{Title: "No Slug At All"},
	}, PolicySkip, "admin")

	if out.ErrorCount != 1 || out.SuccessCount != 0 {
		t.Fatalf("outcome = %+v, want 1 error", out)
	}
}

func TestRunOverwriteExistingSeededRecord(t *testing.T) {
	store := newFakeStore()
	store.seed("seeded", "Seeded")
	e := testExecutor(store, newFakeStorage())

	out := e.Run(context.Background(), []wxr.Candidate{
		candidate("seeded", "Replaced", "<p>replaced</p>"),
	}, PolicyOverwrite, "admin")

	if out.SuccessCount != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	rec, _ := store.get("seeded")
	if rec.Title != "Replaced" {
		t.Errorf("Title = %q, want Replaced", rec.Title)
	}
	if store.count() != 1 {
		t.Errorf("store has %d records, want 1", store.count())
	}
}
