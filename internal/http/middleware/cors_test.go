package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(allowed []string, method, origin string, preflight bool) (*httptest.ResponseRecorder, bool) {
	called := false
	h := CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/tools/schemas", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, called
}

func TestCORS(t *testing.T) {
	t.Run("listed origin", func(t *testing.T) {
		rec, called := corsRequest([]string{"https://console.clinic.example/"}, http.MethodGet, "https://console.clinic.example", false)
		assert.True(t, called)
		assert.Equal(t, "https://console.clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("unknown origin still served without headers", func(t *testing.T) {
		rec, called := corsRequest([]string{"https://console.clinic.example"}, http.MethodGet, "https://evil.example", false)
		assert.True(t, called)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		rec, _ := corsRequest([]string{"*"}, http.MethodGet, "https://anywhere.example", false)
		assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight allowed", func(t *testing.T) {
		rec, called := corsRequest([]string{"*"}, http.MethodOptions, "https://anywhere.example", true)
		assert.False(t, called)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("preflight denied", func(t *testing.T) {
		rec, called := corsRequest([]string{"https://console.clinic.example"}, http.MethodOptions, "https://evil.example", true)
		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
