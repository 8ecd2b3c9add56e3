package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/smartfit/internal/auth"
)

func TestChainAppliesAuthAndCORS(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.HandleFunc("/v1/meals", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	logger, hook := test.NewNullLogger()
	handler := Chain(router, ChainConfig{
		Auth:        auth.Config{Secret: "s3cret"},
		CORSOrigins: []string{"https://app.example.com"},
		Logger:      logger,
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/meals", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	entry := hook.LastEntry()
	require.Equal(t, logrus.InfoLevel, entry.Level)
	require.Equal(t, http.StatusUnauthorized, entry.Data["status"])
}

func TestRecoverReturns500(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := Recover(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/summary", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
