package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseNormalizesScopes(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    "smartfit",
		"scopes": "records:read records:write",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, Config{Secret: secret, Issuer: "smartfit"})
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeRecordsRead))
	require.True(t, claims.HasScope(ScopeRecordsWrite))
	require.False(t, claims.HasScope(ScopePreferencesWrite))
}

func TestParseRejectsBadTokens(t *testing.T) {
	cfg := Config{Secret: secret, Issuer: "smartfit"}

	_, err := Parse("", cfg)
	require.ErrorIs(t, err, ErrMissingToken)

	expired := sign(t, jwt.MapClaims{"sub": "u", "iss": "smartfit", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = Parse(expired, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := sign(t, jwt.MapClaims{"sub": "u", "iss": "other", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = Parse(wrongIssuer, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)

	noExpiry := sign(t, jwt.MapClaims{"sub": "u", "iss": "smartfit"})
	_, err = Parse(noExpiry, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAcceptsHeaderOrQueryToken(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"sub":    "user-1",
		"scopes": []string{ScopeRecordsRead},
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	var seen *Claims
	handler := NewMiddleware(Config{Secret: secret}, SkipOperational).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/summary", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-1", seen.Subject)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/summary/stream?access_token="+token, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/summary", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	seen = nil
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, seen)
}

func TestMiddlewareDisabledGrantsAllScopes(t *testing.T) {
	var seen *Claims
	handler := NewMiddleware(Config{}, nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/meals", nil))
	for _, scope := range AllScopes {
		require.True(t, seen.HasScope(scope))
	}
}

func TestRequireScope(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireScope(ScopePreferencesWrite, ok)

	req := httptest.NewRequest(http.MethodPatch, "/v1/preferences", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(WithClaims(req.Context(), &Claims{Scopes: map[string]struct{}{ScopeRecordsRead: {}}})))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(WithClaims(req.Context(), Anonymous())))
	require.Equal(t, http.StatusOK, rec.Code)
}
