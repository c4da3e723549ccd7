package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/eringen/wximport"
)

func main() {
	cfg := wximport.Config{
		Name:          wximport.EnvOr("SITE_NAME", "wximport"),
		URL:           wximport.EnvOr("SITE_URL", "http://localhost:3000"),
		Addr:          wximport.EnvOr("ADDR", ":3000"),
		DatabasePath:  wximport.EnvOr("DATABASE_PATH", "data/content.db"),
		PublicDir:     wximport.EnvOr("PUBLIC_DIR", "public"),
		AdminPassword: wximport.MustEnv("ADMIN_PASSWORD"),
		SessionSecret: wximport.MustEnv("SESSION_SECRET"),
		CookieSecure:  os.Getenv("COOKIE_SECURE") == "true",
		AuthorName:    wximport.EnvOr("AUTHOR_NAME", "admin"),
	}
	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("IMPORT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ImportWorkers = n
		}
	}

	app := wximport.New(cfg)
	defer app.Close()
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
