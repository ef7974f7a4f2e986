package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

// StaticFileServer serves portal upload files from dir. Paths are cleaned to
// keep requests inside dir; anything else is a 404.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		// Uploaded documents are per-tenant, never publicly cacheable.
		w.Header().Set("Cache-Control", "private, no-store")
		http.ServeFile(w, r, path)
	})
}

// SecurityHeaders sets baseline security response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
