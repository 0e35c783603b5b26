package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/gorilla/mux"

	"github.com/dharsanguruparan/VaultGate/internal/storage"
)

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "Access granted")
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	if s.objects == nil {
		http.NotFound(w, r)
		return
	}
	key := mux.Vars(r)["key"]
	obj, err := s.objects.Open(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.Error(err, "opening object", "key", key)
		http.Error(w, "object unavailable", http.StatusInternalServerError)
		return
	}
	defer obj.Body.Close()
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	// ServeContent handles Range and conditional requests.
	http.ServeContent(w, r, path.Base(key), obj.ModTime, obj.Body)
}
