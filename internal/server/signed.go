package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/dharsanguruparan/VaultGate/internal/model"
	"github.com/dharsanguruparan/VaultGate/internal/signing"
)

// statusFor maps a rejection to a status code: malformed input is a 400,
// a well-formed but refused URL is a 403.
func statusFor(reason signing.Reason) int {
	switch reason {
	case signing.ReasonExpired, signing.ReasonInvalidSignature:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// allowIPs refuses clients outside the configured allow-list.
func (s *Server) allowIPs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.AllowedIPs.Allowed(r.RemoteAddr) {
			s.Info("IP address not allowed", "remote_addr", clientIP(r), "path", r.URL.Path)
			s.record(r, "", model.OutcomeRejected, "ip_not_allowed")
			verificationsMetric.WithLabelValues("ip_not_allowed").Inc()
			http.Error(w, "IP address not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verifySignedURL is middleware that verifies signed URLs.
func (s *Server) verifySignedURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := r.URL.Query().Get(signing.ParamVersion)
		_, err := s.verifier.Verify(s.requestURL(r), s.now())
		if err != nil {
			reason := signing.ReasonOf(err)
			s.Info("signed URL rejected",
				"reason", reason,
				"path", r.URL.Path,
				"remote_addr", clientIP(r),
				"version", version)
			s.record(r, version, model.OutcomeRejected, string(reason))
			verificationsMetric.WithLabelValues(string(reason)).Inc()
			http.Error(w, err.Error(), statusFor(reason))
			return
		}
		s.V(1).Info("access granted", "path", r.URL.Path, "version", version)
		s.record(r, version, model.OutcomeGranted, "")
		verificationsMetric.WithLabelValues(string(model.OutcomeGranted)).Inc()
		next.ServeHTTP(w, r)
	})
}

// requestURL rebuilds the absolute URL the client requested, with the query
// string exactly as sent.
func (s *Server) requestURL(r *http.Request) string {
	uri := r.RequestURI
	if !strings.HasPrefix(uri, "/") {
		uri = r.URL.RequestURI()
	}
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL + uri
	}
	scheme := "http"
	if r.TLS != nil || r.URL.Scheme == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + uri
}

func (s *Server) record(r *http.Request, version string, outcome model.Outcome, reason string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Submit(model.AccessRecord{
		ID:         requestID(r.Context()),
		Time:       s.now().UTC(),
		RemoteAddr: clientIP(r),
		Path:       r.URL.Path,
		Version:    version,
		Outcome:    outcome,
		Reason:     reason,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
