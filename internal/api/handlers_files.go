package api

import (
	"net/http"
	"time"
)

// handleFilesView returns the current paginated view: the active query
// applied to the accumulated files, clamped to the display limit.
func (r *Router) handleFilesView(w http.ResponseWriter, req *http.Request) {
	view := r.browser.View(r.session.Files(), r.session.Record(), r.coordinator.Status, time.Now().UTC())
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleFilesTree(w http.ResponseWriter, req *http.Request) {
	tree := r.session.Tree()
	if tree == nil {
		writeError(w, http.StatusNotFound, "no completed scan")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (r *Router) handleUpdateQuery(w http.ResponseWriter, req *http.Request) {
	q := r.browser.Query()
	if !decodeBody(w, req, &q) {
		return
	}
	if q.Range.Selector != "" && !q.Range.Selector.Valid() {
		writeError(w, http.StatusBadRequest, "unknown range selector")
		return
	}
	r.browser.SetQuery(q)
	r.handleFilesView(w, req)
}

func (r *Router) handleLoadMore(w http.ResponseWriter, req *http.Request) {
	r.browser.LoadMore()
	r.handleFilesView(w, req)
}

type selectRequest struct {
	Path string `json:"path"`
}

func (r *Router) handleSelect(w http.ResponseWriter, req *http.Request) {
	var body selectRequest
	if !decodeBody(w, req, &body) {
		return
	}
	if body.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	r.browser.Select(body.Path)
	r.handleFilesView(w, req)
}

func (r *Router) handleDeselect(w http.ResponseWriter, req *http.Request) {
	var body selectRequest
	if !decodeBody(w, req, &body) {
		return
	}
	r.browser.Deselect(body.Path)
	r.handleFilesView(w, req)
}

func (r *Router) handleToggleSelectAll(w http.ResponseWriter, req *http.Request) {
	r.browser.ToggleSelectAll(r.session.Files(), r.session.Record(), r.coordinator.Status, time.Now().UTC())
	r.handleFilesView(w, req)
}

func (r *Router) handleClearSelection(w http.ResponseWriter, req *http.Request) {
	r.browser.ClearSelection()
	r.handleFilesView(w, req)
}
