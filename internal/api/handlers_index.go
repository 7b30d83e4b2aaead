package api

import (
	"context"
	"net/http"

	"github.com/seralin/baleen/internal/index"
)

type indexRequest struct {
	Mode string `json:"mode"`
}

// handleIndexSelected submits the current selection for indexing. The
// selection is cleared on acceptance; in-flight markers keep the files
// visually pending until the cache confirms.
func (r *Router) handleIndexSelected(w http.ResponseWriter, req *http.Request) {
	var body indexRequest
	if !decodeBody(w, req, &body) {
		return
	}
	mode := index.Mode(body.Mode)
	if mode != index.ModeFast && mode != index.ModeDeep {
		writeError(w, http.StatusBadRequest, "mode must be fast or deep")
		return
	}

	paths := r.browser.Selected()
	if len(paths) == 0 {
		writeError(w, http.StatusBadRequest, "nothing selected")
		return
	}

	go func() {
		if err := r.coordinator.IndexFiles(context.WithoutCancel(req.Context()), paths, mode); err != nil {
			r.logger.Error("index submission failed", "files", len(paths), "error", err)
		}
	}()
	r.browser.ClearSelection()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"submitted": len(paths),
		"mode":      string(mode),
	})
}

func (r *Router) handleCacheRefresh(w http.ResponseWriter, req *http.Request) {
	if err := r.cache.Refresh(req.Context()); err != nil {
		r.logger.Error("refreshing indexed cache", "error", err)
		writeError(w, http.StatusBadGateway, "indexer unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexed": r.cache.Len()})
}

func (r *Router) handleIndexStatus(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path":   path,
		"status": string(r.coordinator.Status(path)),
	})
}
