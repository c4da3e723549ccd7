package wximport

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStorage is the default object storage: files under the public dir,
// served by the app's /public route. Put overwrites in place, so repeated
// imports of the same slug reuse the same asset path instead of
// accumulating orphans.
type DiskStorage struct {
	Dir     string // filesystem root, typically Config.PublicDir
	BaseURL string // public base URL, typically Config.URL
}

// Put writes data at the given slash-separated path and returns its public
// URL.
func (d *DiskStorage) Put(p string, data []byte) (string, error) {
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("storage: invalid path %q", p)
	}
	full := filepath.Join(d.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", clean, err)
	}
	return strings.TrimRight(d.BaseURL, "/") + "/public/" + clean, nil
}
