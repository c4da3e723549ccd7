// Package importer executes batch imports of parsed export candidates:
// duplicate classification against the content store, remote featured-image
// re-hosting into object storage, mandatory sanitization, and slug-keyed
// persistence, with per-item failure isolation.
package importer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eringen/wximport/wxr"
)

// Policy decides what happens to a candidate whose slug already exists.
type Policy string

const (
	// PolicySkip leaves existing records untouched and counts the
	// candidate as skipped.
	PolicySkip Policy = "skip"
	// PolicyOverwrite replaces the existing record's fields in place.
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy validates an operator-supplied policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySkip, PolicyOverwrite:
		return Policy(s), nil
	case "":
		return PolicySkip, nil
	}
	return "", fmt.Errorf("importer: unknown duplicate policy %q", s)
}

// Action is the classified fate of one candidate.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Decision pairs a candidate with its classified action. For ActionUpdate,
// ExistingID identifies the record being replaced. Decisions are advisory:
// the executor re-checks the store at execution time, since other imports
// may have run between preview and execute.
type Decision struct {
	Candidate  wxr.Candidate
	Action     Action
	ExistingID int64
}

// Record is the persisted content shape the store understands. Slug is the
// sole identity for duplicate detection; two records sharing a slug are the
// same content regardless of where they came from.
type Record struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Content        string    `json:"content"`
	Excerpt        string    `json:"excerpt"`
	FeaturedImage  string    `json:"featuredImage,omitempty"`
	SEOTitle       string    `json:"seoTitle,omitempty"`
	SEODescription string    `json:"seoDescription,omitempty"`
	Published      bool      `json:"published"`
	PublishedAt    time.Time `json:"publishedAt"`
	Author         string    `json:"author"`
}

// ErrDuplicateSlug is returned by ContentStore.Insert when the slug
// uniqueness constraint rejects the write. The executor treats it as a
// late-detected duplicate, not a fatal error.
var ErrDuplicateSlug = errors.New("importer: slug already exists")

// ContentStore is the destination for imported records. Implementations
// must enforce slug uniqueness on Insert.
type ContentStore interface {
	ExistsBySlug(slug string) (id int64, ok bool, err error)
	Insert(rec Record) (int64, error)
	UpdateByID(id int64, rec Record) error
}

// ObjectStorage persists re-hosted assets. Put must overwrite idempotently
// at a given path and return the public URL of the stored object.
type ObjectStorage interface {
	Put(path string, data []byte) (publicURL string, err error)
}

// Sanitizer strips unsafe markup from untrusted content bodies. It is
// applied to every body before persistence, without exception.
type Sanitizer interface {
	Sanitize(rawHTML string) (safeHTML string, err error)
}

// Resolve classifies every candidate against the store's current slugs.
// Used to annotate the operator preview; the executor repeats the check
// live per item.
func Resolve(candidates []wxr.Candidate, policy Policy, store ContentStore) ([]Decision, error) {
	decisions := make([]Decision, 0, len(candidates))
	for _, c := range candidates {
		id, ok, err := store.ExistsBySlug(c.Slug)
		if err != nil {
			return nil, fmt.Errorf("importer: resolve %q: %w", c.Slug, err)
		}
		d := Decision{Candidate: c, Action: ActionInsert}
		if ok {
			if policy == PolicyOverwrite {
				d.Action = ActionUpdate
				d.ExistingID = id
			} else {
				d.Action = ActionSkip
			}
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// ItemError surfaces one failed item to the operator.
type ItemError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Outcome is the aggregate report for one batch. Counts are
// order-independent; the error list carries one entry per failed item.
type Outcome struct {
	SuccessCount int         `json:"successCount"`
	SkipCount    int         `json:"skipCount"`
	ErrorCount   int         `json:"errorCount"`
	Errors       []ItemError `json:"errors"`
}

// tally accumulates an Outcome across concurrently processed items.
type tally struct {
	mu  sync.Mutex
	out Outcome
}

func newTally() *tally {
	return &tally{out: Outcome{Errors: []ItemError{}}}
}

func (t *tally) success() {
	t.mu.Lock()
	t.out.SuccessCount++
	t.mu.Unlock()
}

func (t *tally) skip() {
	t.mu.Lock()
	t.out.SkipCount++
	t.mu.Unlock()
}

func (t *tally) fail(title string, err error) {
	t.mu.Lock()
	t.out.ErrorCount++
	t.out.Errors = append(t.out.Errors, ItemError{Title: title, Message: err.Error()})
	t.mu.Unlock()
}
