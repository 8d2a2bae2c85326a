package http

import (
	"net/http"
	"path"
	"regexp"
	"strings"
)

const (
	immutableCache = "public, max-age=31536000, immutable"
	revalidate     = "no-cache"
)

// hex content hashes of at least eight characters delimited by '.', '-' or '_'
var hashedSegment = regexp.MustCompile(`(^|[.\-_])[0-9a-f]{8,}([.\-_]|$)`)

// ExtractClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For header first (for proxied requests), then X-Real-IP, finally RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the list (comma-separated)
		if before, _, ok := strings.Cut(xff, ","); ok {
			return before
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr, stripping port
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// IsContentHashed reports whether the final path element carries a hex content hash.
func IsContentHashed(p string) bool {
	return hashedSegment.MatchString(path.Base(p))
}

// CacheControlMiddleware marks content hashed files as immutable so browsers
// never revalidate them, everything else (HTML, manifests, error pages) must
// revalidate. The header is set when the status is written, http.FileServer
// clears Cache-Control on its error path.
func CacheControlMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, hashed: IsContentHashed(r.URL.Path)}, r)
		})
	}
}

type cacheControlWriter struct {
	http.ResponseWriter
	hashed      bool
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		value := revalidate
		if w.hashed && status < http.StatusBadRequest {
			value = immutableCache
		}
		w.Header().Set("Cache-Control", value)
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheControlWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
