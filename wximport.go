// Package wximport is a content migration engine that ingests WordPress
// WXR exports into a slug-keyed SQLite content store. It parses the export
// into candidate records, classifies duplicates against already-persisted
// content, and executes the batch import with remote featured-image
// re-hosting, mandatory HTML sanitization, and per-item failure isolation.
//
// The operator surface is a small Echo app: upload an export for preview,
// select candidates and a duplicate policy, execute, and read the outcome
// report.
package wximport

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/wximport/importer"
	"github.com/eringen/wximport/sanitize"
)

// App is the central wximport application. It wires together the store,
// the import executor and its collaborators, the HTTP surface, and the
// operator session auth.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Executor *importer.Executor

	loginLimiter  *AttemptLimiter
	importLimiter *AttemptLimiter
	httpClient    *http.Client
	storage       importer.ObjectStorage
	sanitizer     importer.Sanitizer
	customRoutes  []func(*App)
}

// New creates a new wximport App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the store, executor, middleware, and routes, and starts
// the server.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// init wires the store, executor, middleware, and routes without binding a
// listener.
func (a *App) init() error {
	// Validate required config
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("wximport: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("wximport: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("wximport: init store: %w", err)
	}
	a.Store = store

	if a.storage == nil {
		a.storage = &DiskStorage{Dir: a.Config.PublicDir, BaseURL: a.Config.URL}
	}
	if a.sanitizer == nil {
		a.sanitizer = sanitize.New()
	}

	a.Executor = &importer.Executor{
		Store:     a.Store,
		Storage:   a.storage,
		Sanitizer: a.sanitizer,
		Assets:    importer.NewAssetFetcher(a.httpClient, a.Config.FetchTimeout, a.Config.MaxAssetBytes),
		Workers:   a.Config.ImportWorkers,
	}

	a.loginLimiter = NewAttemptLimiter(5, time.Minute)
	a.importLimiter = NewAttemptLimiter(3, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Re-hosted assets live under the public dir
	e.Static("/public", a.Config.PublicDir)
	e.GET("/healthz", handleHealth)

	// Operator pages
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.GET("/admin/import/", a.handleImportPage)

	// Import API
	e.POST("/admin/import/upload/", a.handleImportUpload)
	e.POST("/admin/import/execute/", a.handleImportExecute)
	e.GET("/admin/content/", a.handleContentList)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("wximport: required environment variable %s is not set", key)
	}
	return v
}
