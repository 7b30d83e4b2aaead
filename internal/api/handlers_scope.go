package api

import (
	"net/http"

	"github.com/seralin/baleen/internal/scan"
	"github.com/seralin/baleen/internal/timewindow"
)

func (r *Router) handleGetScope(w http.ResponseWriter, req *http.Request) {
	scope, err := r.store.LoadScope(req.Context())
	if err != nil {
		r.logger.Error("loading scope", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scan scope")
		return
	}
	writeJSON(w, http.StatusOK, scope)
}

func (r *Router) handleUpdateScope(w http.ResponseWriter, req *http.Request) {
	var scope scan.Scope
	if !decodeBody(w, req, &scope) {
		return
	}
	for _, d := range scope.Directories {
		if d.Path == "" {
			writeError(w, http.StatusBadRequest, "directory path must not be empty")
			return
		}
	}
	if err := r.store.SaveScope(req.Context(), scope); err != nil {
		r.logger.Error("saving scope", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save scan scope")
		return
	}
	writeJSON(w, http.StatusOK, scope)
}

func (r *Router) handleGetRange(w http.ResponseWriter, req *http.Request) {
	rng, err := r.store.LoadRange(req.Context())
	if err != nil {
		r.logger.Error("loading range", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load selected range")
		return
	}
	writeJSON(w, http.StatusOK, rng)
}

func (r *Router) handleUpdateRange(w http.ResponseWriter, req *http.Request) {
	var rng timewindow.Range
	if !decodeBody(w, req, &rng) {
		return
	}
	if !rng.Selector.Valid() {
		writeError(w, http.StatusBadRequest, "unknown range selector")
		return
	}
	if err := r.store.SaveRange(req.Context(), rng); err != nil {
		r.logger.Error("saving range", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save selected range")
		return
	}
	writeJSON(w, http.StatusOK, rng)
}
