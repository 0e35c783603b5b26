// Package server is the HTTP face of VaultGate: it extracts the URL of each
// request, hands it to the signing core and turns the outcome into a status
// code, a log line, a metric and an audit record.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-logr/logr"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/VaultGate/internal/config"
	"github.com/dharsanguruparan/VaultGate/internal/model"
	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

// shutdownTimeout is the time given for outstanding requests to finish
// before shutdown.
const shutdownTimeout = 5 * time.Second

// ObjectStore serves the protected objects behind /objects/.
type ObjectStore interface {
	Open(ctx context.Context, key string) (*model.Object, error)
}

// Recorder receives an access record for every signed-URL decision.
type Recorder interface {
	Submit(rec model.AccessRecord) bool
}

// Options holds the server's collaborators. Objects and Recorder are
// optional.
type Options struct {
	Config   *config.Config
	Verifier *signing.Verifier
	Objects  ObjectStore
	Recorder Recorder
	Logger   logr.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server hosts the HTTP handlers.
type Server struct {
	logr.Logger

	cfg      *config.Config
	verifier *signing.Verifier
	objects  ObjectStore
	recorder Recorder
	now      func() time.Time
	handler  http.Handler
}

// New creates a configured server.
func New(opts Options) *Server {
	s := &Server{
		Logger:   opts.Logger,
		cfg:      opts.Config,
		verifier: opts.Verifier,
		objects:  opts.Objects,
		recorder: opts.Recorder,
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve launches the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		s.Info("gracefully shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	s.Info("started server", "address", s.cfg.Address, "key_versions", s.cfg.Keys.Versions())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	// Catch panics and return 500s
	r.Use(gorillaHandlers.RecoveryHandler(gorillaHandlers.PrintRecoveryStack(true)))
	if s.cfg.TrustProxy {
		r.Use(gorillaHandlers.ProxyHeaders)
	}
	r.Use(withRequestID)
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	signed := r.NewRoute().Subrouter()
	signed.Use(s.allowIPs, s.verifySignedURL)
	signed.HandleFunc("/resource", s.handleResource).Methods(http.MethodGet, http.MethodHead)
	signed.HandleFunc("/objects/{key:.+}", s.handleObject).Methods(http.MethodGet, http.MethodHead)
	return r
}

// logRequests logs every request at V(1). Only the path is logged: the query
// string carries the signature.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.V(1).Info("request",
			"duration", m.Duration.String(),
			"status", m.Code,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
