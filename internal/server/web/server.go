// Package web serves the one HTTP surface this core owns: the public JWKS
// document at its well-known path. Everything else (login, refresh, profile)
// is routed by the surrounding product.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/gorilla/mux"

	"github.com/createsomethingtoday/identity/internal/logging"
)

// KeySetProvider yields the publishable key set. Implemented by
// services.AuthService.
type KeySetProvider interface {
	PublicKeySet(ctx context.Context) (*jose.JSONWebKeySet, error)
}

type Server struct {
	address string
	logger  logging.Logger
	keyset  KeySetProvider
}

func NewServer(address string, l logging.Logger, keyset KeySetProvider) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "web_server"),
		keyset:  keyset,
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/.well-known/jwks.json", s.handleJWKS).Methods(http.MethodGet)
	return r
}

// handleJWKS writes the public key set. The document only changes on key
// rotation, so clients and CDNs may cache it briefly.
func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	set, err := s.keyset.PublicKeySet(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "jwks export failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := json.NewEncoder(w).Encode(set); err != nil {
		s.logger.Error(r.Context(), "jwks encode failed", "error", err)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
