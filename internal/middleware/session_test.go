package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureSessionID(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestBrowserSession_IssuesCookie(t *testing.T) {
	var seen string
	handler := BrowserSession(true)(captureSessionID(&seen))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, cookies[0].Value, seen)
}

func TestBrowserSession_ReusesValidCookie(t *testing.T) {
	var seen string
	handler := BrowserSession(false)(captureSessionID(&seen))

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: id})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, id, seen)
}

func TestBrowserSession_ReplacesForgedCookie(t *testing.T) {
	var seen string
	handler := BrowserSession(false)(captureSessionID(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "../other:access"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Len(t, rec.Result().Cookies(), 1)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRecoveryAndRequestID(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := Logging(Recovery(panicking))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)
}
