package api

import (
	"context"
	"net/http"

	"github.com/seralin/baleen/internal/timewindow"
)

// handleScanStart begins a new scan over the persisted scope. The body
// may carry a range; when absent the persisted selection is used. The
// range used is persisted back so it survives a restart.
func (r *Router) handleScanStart(w http.ResponseWriter, req *http.Request) {
	scope, err := r.store.LoadScope(req.Context())
	if err != nil {
		r.logger.Error("loading scope", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scan scope")
		return
	}
	if len(scope.Directories) == 0 {
		writeError(w, http.StatusBadRequest, "no scan directories configured")
		return
	}

	var rng timewindow.Range
	if req.ContentLength > 0 {
		if !decodeBody(w, req, &rng) {
			return
		}
		if !rng.Selector.Valid() {
			writeError(w, http.StatusBadRequest, "unknown range selector")
			return
		}
		if err := r.store.SaveRange(req.Context(), rng); err != nil {
			r.logger.Warn("persisting selected range", "error", err)
		}
	} else {
		if rng, err = r.store.LoadRange(req.Context()); err != nil {
			r.logger.Error("loading range", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load selected range")
			return
		}
	}

	// The scan outlives this request.
	r.session.Start(context.WithoutCancel(req.Context()), scope, rng)
	writeJSON(w, http.StatusAccepted, r.session.Progress())
}

func (r *Router) handleScanCancel(w http.ResponseWriter, req *http.Request) {
	r.session.Cancel()
	writeJSON(w, http.StatusOK, r.session.Progress())
}

func (r *Router) handleScanStatus(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.session.Progress())
}
