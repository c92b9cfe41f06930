package lookup

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// Handler serves the mirror endpoints.
type Handler struct {
	store *Store
	log   *logger.Logger
}

// NewHandler creates a Handler over store.
func NewHandler(store *Store, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{store: store, log: log}
}

// Routes returns a router serving GET /{endpoint}. Mount it under the
// service root (e.g. /v1).
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{endpoint}", h.list)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "endpoint")
	ep, ok := endpoints[name]
	if !ok {
		writeError(w, h.log, http.StatusNotFound, "unknown_endpoint", "no such resource: "+name)
		return
	}

	q, err := parseQuery(r.URL.Query(), ep)
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			writeError(w, h.log, http.StatusBadRequest, qe.Code, qe.Msg)
			return
		}
		writeError(w, h.log, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rows, err := h.store.find(r.Context(), ep, q)
	if err != nil {
		h.log.Error("lookup: find failed", "endpoint", name, "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, h.log, http.StatusOK, rows)
}
