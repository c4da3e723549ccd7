package wximport

import (
	"net/http"
	"time"

	"github.com/eringen/wximport/importer"
)

// Config holds all configuration for a wximport instance.
type Config struct {
	Name string // Site name shown on operator pages (default "wximport")
	URL  string // Canonical base URL used for re-hosted asset links (default "http://localhost:3000")

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path (default "data/content.db")
	PublicDir    string // Directory served under /public; re-hosted assets land here (default "public")

	AdminPassword string // Required: operator login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	AuthorName string // Author recorded on imported records (default "admin")

	FetchTimeout  time.Duration // Per-asset fetch timeout (default 15s)
	MaxAssetBytes int64         // Per-asset size cap (default 10MB)
	ImportWorkers int           // Concurrent import items (default 4)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "wximport"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/content.db"
	}
	if c.PublicDir == "" {
		c.PublicDir = "public"
	}
	if c.AuthorName == "" {
		c.AuthorName = "admin"
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.MaxAssetBytes == 0 {
		c.MaxAssetBytes = 10 << 20
	}
	if c.ImportWorkers == 0 {
		c.ImportWorkers = 4
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithHTTPClient sets the client used to fetch remote assets.
func WithHTTPClient(client *http.Client) Option {
	return func(a *App) {
		a.httpClient = client
	}
}

// WithObjectStorage replaces the default disk-backed asset storage.
func WithObjectStorage(storage importer.ObjectStorage) Option {
	return func(a *App) {
		a.storage = storage
	}
}

// WithSanitizer replaces the default content sanitization policy.
func WithSanitizer(s importer.Sanitizer) Option {
	return func(a *App) {
		a.sanitizer = s
	}
}
