package adminlist

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/renewalkit/pkg/logger"
)

// Routes returns a router serving the page as JSON at "/".
func (s *Screen) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.handleList)
	return r
}

func (s *Screen) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := s.Build(r.Context(), r.URL.Query())
	switch {
	case errors.Is(err, ErrInvalidParams):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "failed to build subscription list", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
