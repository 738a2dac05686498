package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWithSecurityHeaders(t *testing.T, hsts bool) http.Header {
	t.Helper()

	mw := NewSecurityHeadersMiddleware(hsts)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Result().Header
}

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	headers := serveWithSecurityHeaders(t, false)

	tests := []struct {
		name string
		want string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	}

	for _, tt := range tests {
		if got := headers.Get(tt.name); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSecurityHeadersMiddleware_HSTSOnlyWhenEnabled(t *testing.T) {
	// http配信ではHSTSを返さない
	if got := serveWithSecurityHeaders(t, false).Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want empty without HSTS", got)
	}

	want := "max-age=31536000; includeSubDomains"
	if got := serveWithSecurityHeaders(t, true).Get("Strict-Transport-Security"); got != want {
		t.Errorf("Strict-Transport-Security = %q, want %q", got, want)
	}
}
