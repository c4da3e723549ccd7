// Package wxr decodes WordPress eXtended RSS (WXR) export documents into
// normalized candidate records ready for import.
//
// Parsing is a pure transform: bytes in, candidates out. A document without
// a recognizable channel is a hard format error; any missing or malformed
// sub-field on an individual item degrades to an empty value instead.
package wxr

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the normalized lifecycle state of a candidate.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// Content types retained by the parser. Everything else (attachments,
// revisions, menu items, custom types) is excluded from the candidate list
// but stays resolvable as a featured-image target.
const (
	TypePost = "post"
	TypePage = "page"
)

// ErrNoChannel is returned for documents that are XML but not a WXR/RSS
// export (no channel under the rss root).
var ErrNoChannel = errors.New("wxr: document has no channel")

// Candidate is one parsed post or page from the export. It is transient:
// external PostID only has meaning within a single export, while Slug is the
// identity used for duplicate detection against the destination store.
type Candidate struct {
	PostID           string    `json:"postId"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	Content          string    `json:"content"`
	Excerpt          string    `json:"excerpt"`
	PublishedAt      time.Time `json:"publishedAt"`
	Status           Status    `json:"status"`
	Type             string    `json:"type"`
	FeaturedImageURL string    `json:"featuredImageUrl,omitempty"`
	SEOTitle         string    `json:"seoTitle,omitempty"`
	SEODescription   string    `json:"seoDescription,omitempty"`
	Categories       []string  `json:"categories,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
}

// Published reports whether the candidate should be live after import.
func (c Candidate) Published() bool { return c.Status == StatusPublished }

// Postmeta keys carrying the featured-image linkage and the Yoast SEO
// overrides.
const (
	metaThumbnailID   = "_thumbnail_id"
	metaYoastTitle    = "_yoast_wpseo_title"
	metaYoastMetaDesc = "_yoast_wpseo_metadesc"
	wpStatusPublish   = "publish"
	wpTypeAttachment  = "attachment"
	domainCategory    = "category"
	domainTag         = "post_tag"
	wpPostDateLayout  = "2006-01-02 15:04:05"
	wpZeroDate        = "0000-00-00 00:00:00"
)

// The wire shapes below mirror the WXR dialect. Slice fields make every
// repeated element (items, categories, postmeta) a list regardless of
// cardinality, so a single-item export decodes the same as a multi-item one.
// wp-namespaced fields match by local name only, which keeps the decoder
// working across wp export namespace versions; content:encoded and
// excerpt:encoded share a local name and must both be pinned to their
// namespaces to decode apart.
type document struct {
	XMLName xml.Name `xml:"rss"`
	Channel *channel `xml:"channel"`
}

type channel struct {
	Title string `xml:"title"`
	Items []item `xml:"item"`
}

type item struct {
	Title         string     `xml:"title"`
	PubDate       string     `xml:"pubDate"`
	Categories    []category `xml:"category"`
	Content       string     `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Excerpt       string     `xml:"http://wordpress.org/export/1.2/excerpt/ encoded"`
	PostID        string     `xml:"post_id"`
	PostName      string     `xml:"post_name"`
	PostDate      string     `xml:"post_date"`
	PostType      string     `xml:"post_type"`
	Status        string     `xml:"status"`
	AttachmentURL string     `xml:"attachment_url"`
	Postmeta      []postmeta `xml:"postmeta"`
}

type category struct {
	Domain string `xml:"domain,attr"`
	Name   string `xml:",chardata"`
}

type postmeta struct {
	Key   string `xml:"meta_key"`
	Value string `xml:"meta_value"`
}

// Parse decodes a WXR export into the ordered candidate list. Selection of
// which candidates to import is the caller's concern; Parse always returns
// every post and page in document order.
func Parse(data []byte) ([]Candidate, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("wxr: decode export: %w", err)
	}
	if doc.Channel == nil {
		return nil, ErrNoChannel
	}

	// Index every item by post id before resolving anything, so a post's
	// _thumbnail_id can join to its attachment in one lookup.
	attachments := make(map[string]string)
	for _, it := range doc.Channel.Items {
		if it.PostType == wpTypeAttachment && it.AttachmentURL != "" {
			attachments[strings.TrimSpace(it.PostID)] = strings.TrimSpace(it.AttachmentURL)
		}
	}

	var candidates []Candidate
	for _, it := range doc.Channel.Items {
		if it.PostType != TypePost && it.PostType != TypePage {
			continue
		}
		candidates = append(candidates, newCandidate(it, attachments))
	}
	return candidates, nil
}

func newCandidate(it item, attachments map[string]string) Candidate {
	c := Candidate{
		PostID:      strings.TrimSpace(it.PostID),
		Title:       strings.TrimSpace(it.Title),
		Content:     it.Content,
		Excerpt:     StripTags(it.Excerpt),
		PublishedAt: parseDate(it.PostDate, it.PubDate),
		Status:      parseStatus(it.Status),
		Type:        it.PostType,
	}

	c.Slug = strings.TrimSpace(it.PostName)
	if c.Slug == "" {
		c.Slug = Slugify(c.Title)
	}

	for _, cat := range it.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			continue
		}
		switch cat.Domain {
		case domainCategory:
			c.Categories = append(c.Categories, name)
		case domainTag:
			c.Tags = append(c.Tags, name)
		}
	}

	for _, meta := range it.Postmeta {
		value := strings.TrimSpace(meta.Value)
		switch strings.TrimSpace(meta.Key) {
		case metaThumbnailID:
			// A thumbnail id with no matching attachment is treated the
			// same as no thumbnail id at all.
			c.FeaturedImageURL = attachments[value]
		case metaYoastTitle:
			c.SEOTitle = value
		case metaYoastMetaDesc:
			c.SEODescription = value
		}
	}

	return c
}

func parseStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), wpStatusPublish) {
		return StatusPublished
	}
	return StatusDraft
}

// parseDate prefers wp:post_date and falls back to the RSS pubDate. Both
// failing leaves the zero time; a missing date never rejects the record.
func parseDate(postDate, pubDate string) time.Time {
	postDate = strings.TrimSpace(postDate)
	if postDate != "" && postDate != wpZeroDate {
		if t, err := time.Parse(wpPostDateLayout, postDate); err == nil {
			return t
		}
	}
	pubDate = strings.TrimSpace(pubDate)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, pubDate); err == nil {
			return t
		}
	}
	return time.Time{}
}
