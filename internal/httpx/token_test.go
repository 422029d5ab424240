package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForwardAuthCheck(t *testing.T) {
	auth := NewForwardAuth("secret")

	check := func(r *http.Request, bodyToken string) (*httptest.ResponseRecorder, bool) {
		rec := httptest.NewRecorder()
		ok := auth.Check(rec, r, bodyToken)
		return rec, ok
	}

	t.Run("body token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/lead", nil)
		_, ok := check(r, "secret")
		assert.True(t, ok)
	})

	t.Run("query token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/rag/files?token=secret", nil)
		_, ok := check(r, "")
		assert.True(t, ok)
	})

	t.Run("header token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/rag/status", nil)
		r.Header.Set("X-Forward-Token", "secret")
		_, ok := check(r, "")
		assert.True(t, ok)
	})

	t.Run("body token wins over header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/lead", nil)
		r.Header.Set("X-Forward-Token", "secret")
		rec, ok := check(r, "wrong")
		assert.False(t, ok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/lead", nil)
		rec, ok := check(r, "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
