package middleware

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAHandler serves the built frontend from dir. Requests for paths that do
// not exist on disk fall back to index.html so client-side routing works.
// API paths never reach this handler.
func SPAHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
		full := filepath.Join(dir, reqPath)

		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
