package importer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/wximport/wxr"
)

const defaultWorkers = 4

// Executor performs the side effects of an import batch. It is the only
// component that writes to the content store or object storage.
type Executor struct {
	Store     ContentStore
	Storage   ObjectStorage
	Sanitizer Sanitizer
	Assets    *AssetFetcher

	// Workers bounds concurrent item processing. Items are independent
	// units of work; the store's slug uniqueness constraint is the safety
	// net if two imports race.
	Workers int
	Logger  *log.Logger
}

// Run processes the selected candidates under the given policy and returns
// the aggregate outcome. A single item's failure is recorded and counted,
// never propagated: the batch call itself cannot fail.
//
// Cancelling ctx stops dispatching new items; items already in flight run
// to completion so no asset is left written without its content record.
func (e *Executor) Run(ctx context.Context, candidates []wxr.Candidate, policy Policy, author string) Outcome {
	runID := uuid.NewString()[:8]
	t := newTally()

	var g errgroup.Group
	g.SetLimit(e.workers())
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		c := c
		g.Go(func() error {
			// A goroutine held back by the worker limit may only be
			// released after a cancel; it must not start work then.
			if ctx.Err() != nil {
				return nil
			}
			e.runOne(ctx, t, c, policy, author, runID)
			return nil
		})
	}
	g.Wait()

	e.logf("import %s: done: %d ok, %d skipped, %d failed",
		runID, t.out.SuccessCount, t.out.SkipCount, t.out.ErrorCount)
	return t.out
}

func (e *Executor) runOne(ctx context.Context, t *tally, c wxr.Candidate, policy Policy, author, runID string) {
	defer func() {
		if r := recover(); r != nil {
			t.fail(c.Title, fmt.Errorf("panic: %v", r))
		}
	}()

	if c.Slug == "" {
		t.fail(c.Title, errors.New("candidate has no slug"))
		return
	}

	// Classification happens here, against current store state, not the
	// preview-time snapshot.
	id, exists, err := e.Store.ExistsBySlug(c.Slug)
	if err != nil {
		t.fail(c.Title, fmt.Errorf("lookup slug: %w", err))
		return
	}
	if exists && policy != PolicyOverwrite {
		t.skip()
		return
	}

	rec := Record{
		Title:          c.Title,
		Slug:           c.Slug,
		Excerpt:        c.Excerpt,
		SEOTitle:       c.SEOTitle,
		SEODescription: c.SEODescription,
		Published:      c.Published(),
		PublishedAt:    c.PublishedAt,
		Author:         author,
	}

	// A record without its image is fine; a record that skipped
	// sanitization is not. Asset failures are logged and the item
	// continues, sanitize failures fail the item.
	if c.FeaturedImageURL != "" {
		url, err := e.rehost(ctx, c)
		if err != nil {
			e.logf("import %s: rehost %s: %v", runID, c.Slug, err)
		} else {
			rec.FeaturedImage = url
		}
	}

	safe, err := e.Sanitizer.Sanitize(c.Content)
	if err != nil {
		t.fail(c.Title, fmt.Errorf("sanitize: %w", err))
		return
	}
	rec.Content = safe

	if exists {
		err = e.Store.UpdateByID(id, rec)
	} else {
		err = e.insert(rec, policy)
	}
	if errors.Is(err, errLateSkip) {
		t.skip()
		return
	}
	if err != nil {
		t.fail(c.Title, err)
		return
	}
	t.success()
}

// errLateSkip marks a duplicate that appeared between the item's own
// duplicate check and its insert, under the skip policy.
var errLateSkip = errors.New("importer: duplicate detected at insert")

// insert writes a new record, converting a slug-uniqueness rejection into
// the policy's duplicate handling instead of an item error.
func (e *Executor) insert(rec Record, policy Policy) error {
	_, err := e.Store.Insert(rec)
	if !errors.Is(err, ErrDuplicateSlug) {
		return err
	}
	if policy != PolicyOverwrite {
		return errLateSkip
	}
	id, ok, err := e.Store.ExistsBySlug(rec.Slug)
	if err != nil {
		return fmt.Errorf("lookup after duplicate insert: %w", err)
	}
	if !ok {
		return fmt.Errorf("slug %q rejected as duplicate but not found", rec.Slug)
	}
	return e.Store.UpdateByID(id, rec)
}

// rehost fetches the candidate's remote featured image and writes it to
// object storage at a path derived from the slug, so re-importing the same
// slug overwrites the same object instead of accumulating orphans.
func (e *Executor) rehost(ctx context.Context, c wxr.Candidate) (string, error) {
	// Once an item is in flight it finishes even if the batch is
	// cancelled; only the fetch's own timeout applies.
	raw, err := e.Assets.Fetch(context.WithoutCancel(ctx), c.FeaturedImageURL)
	if err != nil {
		return "", err
	}
	data, err := encodeImage(raw)
	if err != nil {
		return "", err
	}
	return e.Storage.Put(AssetPath(c.Slug), data)
}

// AssetPath is the deterministic object-storage path for a slug's featured
// image. Slugs are the store identity and are used verbatim when already
// path-safe; anything else is cleaned and suffixed with a hash of the
// original so two distinct slugs can never collapse onto one asset path.
func AssetPath(slug string) string {
	clean := wxr.Slugify(slug)
	if clean == slug {
		return "uploads/" + clean + ".jpg"
	}
	if clean == "" {
		clean = "asset"
	}
	h := fnv.New32a()
	h.Write([]byte(slug))
	return fmt.Sprintf("uploads/%s-%08x.jpg", clean, h.Sum32())
}

func (e *Executor) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return defaultWorkers
}

func (e *Executor) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
