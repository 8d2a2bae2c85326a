package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractClientIP_xForwardedFor(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{
			name:     "single IP",
			header:   "192.168.1.1",
			expected: "192.168.1.1",
		},
		{
			name:     "multiple IPs (take first)",
			header:   "203.0.113.1, 198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "multiple IPs no spaces",
			header:   "203.0.113.1,198.51.100.1",
			expected: "203.0.113.1",
		},
		{
			name:     "multiple IPs with extra spaces",
			header:   "203.0.113.1  ,  198.51.100.1",
			expected: "203.0.113.1  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("X-Forwarded-For", tt.header)

			ip := ExtractClientIP(r)
			require.Equal(t, tt.expected, ip)
		})
	}
}

func TestExtractClientIP_xRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "192.168.1.100")

	ip := ExtractClientIP(r)
	require.Equal(t, "192.168.1.100", ip)
}

func TestExtractClientIP_xForwardedForTakesPreference(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1, 198.51.100.1")
	r.Header.Set("X-Real-IP", "192.168.1.100")

	ip := ExtractClientIP(r)
	// X-Forwarded-For should take precedence
	require.Equal(t, "203.0.113.1", ip)
}

func TestExtractClientIP_remoteAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{
			name:       "IPv4 with port",
			remoteAddr: "192.168.1.1:54321",
			expected:   "192.168.1.1",
		},
		{
			name:       "IPv6 with port",
			remoteAddr: "[2001:db8::1]:54321",
			expected:   "[2001:db8::1]",
		},
		{
			name:       "no port",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr

			ip := ExtractClientIP(r)
			require.Equal(t, tt.expected, ip)
		})
	}
}

func TestIsContentHashed(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{path: "/main.0123456789abcdef0123.js", expected: true},
		{path: "/main.0123456789abcdef0123.js.map", expected: true},
		{path: "/main.0123456789abcdef0123.js.gz", expected: true},
		{path: "/img/logo-deadbeefcafe.png", expected: true},
		{path: "/index.html", expected: false},
		{path: "/manifest.json", expected: false},
		{path: "/jquery-3.7.1.min.js", expected: false},
		{path: "/deadbeef", expected: true},
		{path: "/", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.expected, IsContentHashed(tt.path))
		})
	}
}

func TestCacheControlMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		status   int
		expected string
	}{
		{name: "hashed bundle", path: "/main.0123456789abcdef0123.js", status: http.StatusOK, expected: immutableCache},
		{name: "hashed not modified", path: "/main.0123456789abcdef0123.js", status: http.StatusNotModified, expected: immutableCache},
		{name: "document", path: "/index.html", status: http.StatusOK, expected: revalidate},
		{name: "hashed not found", path: "/main.fedcba9876543210fedc.js", status: http.StatusNotFound, expected: revalidate},
		{name: "missing", path: "/nope.js", status: http.StatusNotFound, expected: revalidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CacheControlMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// mirrors http.FileServer clearing the header before an error
				w.Header().Del("Cache-Control")
				w.WriteHeader(tt.status)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, tt.expected, w.Header().Get("Cache-Control"))
		})
	}
}

func TestCacheControlMiddleware_implicitStatus(t *testing.T) {
	handler := CacheControlMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("console.log(1);"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/main.0123456789abcdef0123.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, immutableCache, w.Header().Get("Cache-Control"))
}
