// Package sanitize holds the HTML allow-list policy applied to imported
// content bodies. Source markup comes from a foreign system and is
// untrusted; nothing is persisted without passing through here.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// Policy wraps a bluemonday policy allowing the fixed tag set imported
// content may use: headings, paragraphs, lists, links, images, tables, and
// inline formatting. Fully qualified links get target="_blank" with
// rel="noopener noreferrer" forced; relative links get rel="noreferrer".
type Policy struct {
	p *bluemonday.Policy
}

// New builds the import content policy.
func New() *Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "blockquote", "pre", "code",
		"strong", "em", "b", "i", "u", "s", "sub", "sup",
		"ul", "ol", "li",
		"figure", "figcaption",
	)
	p.AllowTables()
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	// Every link gets rel="noreferrer". Fully qualified links additionally
	// get target="_blank", which makes bluemonday add noopener alongside;
	// relative links stay in the same browsing context, where noopener has
	// no effect, so they carry noreferrer only.
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &Policy{p: p}
}

// Sanitize strips everything outside the allow-list from rawHTML.
func (p *Policy) Sanitize(rawHTML string) (string, error) {
	return p.p.Sanitize(rawHTML), nil
}
