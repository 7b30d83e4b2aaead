// Package api serves the HTTP control surface: scan lifecycle, result
// browsing, scope and range configuration, and indexing actions.
package api

import (
	"log/slog"
	"net/http"

	"github.com/seralin/baleen/internal/api/middleware"
	"github.com/seralin/baleen/internal/index"
	"github.com/seralin/baleen/internal/scan"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Session     *scan.Session
	Browser     *scan.Browser
	Store       *scan.Store
	Coordinator *index.Coordinator
	Cache       *index.Cache
	Auth        *middleware.TokenAuth
	Logger      *slog.Logger
	BasePath    string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	session     *scan.Session
	browser     *scan.Browser
	store       *scan.Store
	coordinator *index.Coordinator
	cache       *index.Cache
	auth        *middleware.TokenAuth
	logger      *slog.Logger
	basePath    string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		session:     deps.Session,
		browser:     deps.Browser,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		cache:       deps.Cache,
		auth:        deps.Auth,
		logger:      deps.Logger,
		basePath:    deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := r.auth.Middleware
	mux := http.NewServeMux()
	bp := r.basePath

	// Public routes (no auth)
	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	// Protected routes (token required when configured)
	mux.HandleFunc("POST "+bp+"/api/v1/scan/start", wrapAuth(r.handleScanStart, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/scan/cancel", wrapAuth(r.handleScanCancel, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/scan/status", wrapAuth(r.handleScanStatus, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/scan/scope", wrapAuth(r.handleGetScope, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/scan/scope", wrapAuth(r.handleUpdateScope, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/scan/range", wrapAuth(r.handleGetRange, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/scan/range", wrapAuth(r.handleUpdateRange, authMw))

	mux.HandleFunc("GET "+bp+"/api/v1/files", wrapAuth(r.handleFilesView, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/files/tree", wrapAuth(r.handleFilesTree, authMw))
	mux.HandleFunc("PUT "+bp+"/api/v1/files/query", wrapAuth(r.handleUpdateQuery, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/files/load-more", wrapAuth(r.handleLoadMore, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/files/select", wrapAuth(r.handleSelect, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/files/deselect", wrapAuth(r.handleDeselect, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/files/select-all", wrapAuth(r.handleToggleSelectAll, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/files/clear-selection", wrapAuth(r.handleClearSelection, authMw))

	mux.HandleFunc("POST "+bp+"/api/v1/index", wrapAuth(r.handleIndexSelected, authMw))
	mux.HandleFunc("POST "+bp+"/api/v1/index/refresh", wrapAuth(r.handleCacheRefresh, authMw))
	mux.HandleFunc("GET "+bp+"/api/v1/index/status", wrapAuth(r.handleIndexStatus, authMw))

	rl := middleware.NewRateLimiter(120, 30)
	var handler http.Handler = mux
	handler = rl.Middleware(handler)
	handler = middleware.Logging(r.logger)(handler)
	return handler
}

// wrapAuth applies auth middleware to a single handler func.
func wrapAuth(h http.HandlerFunc, mw func(http.Handler) http.Handler) http.HandlerFunc {
	return mw(h).ServeHTTP
}
