// Package httptransport assembles the HTTP server and its middleware chain.
package httptransport

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/auth"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the timeouts used by cmd/api. WriteTimeout is
// zero so long-lived summary streams are not cut off.
func DefaultServerConfig(address string) ServerConfig {
	return ServerConfig{
		Address:     address,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// NewServer creates *http.Server with provided handler.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// ChainConfig configures the middleware wrapped around the router.
type ChainConfig struct {
	Auth        auth.Config
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// Chain wraps the router with recovery, request logging, CORS and
// authentication, outermost first.
func Chain(router *mux.Router, cfg ChainConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	var h http.Handler = router
	h = auth.NewMiddleware(cfg.Auth, auth.SkipOperational).Wrap(h)
	h = c.Handler(h)
	h = Logging(logger, h)
	h = Recover(logger, h)
	return h
}
