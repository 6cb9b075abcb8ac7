package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow-backend/internal/auth/handler"
	"github.com/docflow/docflow-backend/internal/auth/jwt"
	"github.com/docflow/docflow-backend/pkg/config"
	"github.com/docflow/docflow-backend/pkg/httputil"
)

func newManager(expiry time.Duration) *jwt.Manager {
	return jwt.NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: expiry,
		Issuer:       "docflow-test",
	})
}

func protected(manager *jwt.Manager, seen *string) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = httputil.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return handler.RequireAuth(manager)(next)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	manager := newManager(time.Hour)
	token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Email: "amina@example.com"})
	require.NoError(t, err)

	var seen string
	req := httptest.NewRequest("GET", "/api/v1/cin/all", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()

	protected(manager, &seen).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", seen)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	var seen string
	req := httptest.NewRequest("GET", "/api/v1/cin/all", nil)
	rec := httptest.NewRecorder()

	protected(newManager(time.Hour), &seen).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, seen)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	var seen string
	req := httptest.NewRequest("GET", "/api/v1/cin/all", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()

	protected(newManager(time.Hour), &seen).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	manager := newManager(-time.Minute)
	token, err := manager.Generate(&jwt.UserInfo{ID: "user-1", Email: "amina@example.com"})
	require.NoError(t, err)

	var seen string
	req := httptest.NewRequest("GET", "/api/v1/cin/all", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()

	protected(manager, &seen).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_TamperedToken(t *testing.T) {
	manager := newManager(time.Hour)

	// Signed with a different secret.
	other := jwt.NewManager(&config.JWTConfig{
		Secret:       "other-secret",
		AccessExpiry: time.Hour,
		Issuer:       "docflow-test",
	})
	bad, err := other.Generate(&jwt.UserInfo{ID: "user-1", Email: "amina@example.com"})
	require.NoError(t, err)

	var seen string
	req := httptest.NewRequest("GET", "/api/v1/cin/all", nil)
	req.Header.Set("Authorization", "Bearer "+bad.AccessToken)
	rec := httptest.NewRecorder()

	protected(manager, &seen).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
