package api

import (
	"net/http"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/database"
	"github.com/SergeyBurlaka/muzei/internal/handler"
	"github.com/SergeyBurlaka/muzei/internal/health"
	"github.com/SergeyBurlaka/muzei/internal/logger"
	"github.com/SergeyBurlaka/muzei/internal/metrics"
	"github.com/SergeyBurlaka/muzei/internal/provider"
	"github.com/SergeyBurlaka/muzei/internal/storage"
	muzeisync "github.com/SergeyBurlaka/muzei/internal/sync"
	"github.com/SergeyBurlaka/muzei/internal/tracing"

	"github.com/gorilla/mux"
)

// API is a http api
type API struct {
	Database       database.Store
	Manager        *muzeisync.Manager
	Clients        provider.Factory
	Storage        storage.Provider
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	RootURL        string
	HandlerTimeout time.Duration
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	// Redirect trailing slashes
	router.StrictSlash(true)

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET")

	// Provider registry
	router.Handle("/v1/provider", handler.Handler(a.providerHandler)).Methods("GET")
	router.Handle("/v1/provider", handler.Handler(a.selectProviderHandler)).Methods("PUT")

	// Rotation
	router.Handle("/v1/next", handler.Handler(a.nextHandler)).Methods("POST")

	// Query parameters:
	// ?seed={seed} - Advance the rotation deterministically for a seed

	// Artwork routes
	router.Handle("/v1/artwork", handler.Handler(a.currentArtworkHandler)).Methods("GET")
	router.Handle("/v1/artwork/{id:[0-9]+}", handler.Handler(a.artworkHandler)).Methods("GET")
	router.Handle("/v1/artwork/{id:[0-9]+}/image", handler.Handler(a.imageHandler)).Methods("GET")

	// Query parameters:
	// ?provider={component_name} - Current artwork for a specific provider

	// Artwork history
	router.Handle("/v1/list", handler.Handler(a.listHandler)).Methods("GET")

	// Query parameters:
	// ?page={page} - What page to display
	// ?limit={limit} - How many entries to display per page

	// Provider commands
	router.Handle("/v1/artwork/{id:[0-9]+}/commands", handler.Handler(a.commandsHandler)).Methods("GET")
	router.Handle("/v1/artwork/{id:[0-9]+}/commands/{command:[0-9]+}", handler.Handler(a.triggerCommandHandler)).Methods("POST")
	router.Handle("/v1/artwork/{id:[0-9]+}/info", handler.Handler(a.openArtworkInfoHandler)).Methods("POST")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	var h http.Handler = http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out.")
	h = handler.CORS(nil, h)
	h = handler.Metrics(h, routeMatcher, metrics.HTTPRequestDuration, metrics.HTTPRequestsInFlight)
	if a.Tracer != nil {
		h = handler.Tracer(a.Tracer, h, routeMatcher)
	}

	// Set up handlers for adding a request id, handling panics, request logging, setting CORS headers, and handler execution timeout
	return handler.AddRequestID(handler.Recovery(a.Log, handler.Logger(a.Log, h)))
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}
