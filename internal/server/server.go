// package server contains middleware & handlers for the nowplaying web service
package server

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/services"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, panic recovery and CORS.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the nowplaying service.
// Implementations handle a group of related endpoints (OAuth, widget, profile).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method-qualified patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// AccountService is what the OAuth and profile handlers need from [services.Accounts].
type AccountService interface {
	LoginURL() string
	Authorize(ctx context.Context, code string) (*models.User, error)
	Profile(ctx context.Context, widgetKey string) (*services.SpotifyUser, *models.User, error)
}

// PlaybackQuerier is what the widget handler needs from [services.PlaybackService].
type PlaybackQuerier interface {
	CurrentPlayback(ctx context.Context, widgetKey string) (*models.PlaybackState, error)
}

// Options configures [New].
type Options struct {
	Accounts AccountService
	Playback PlaybackQuerier
	Logger   *log.Logger
}

// New builds the service's root [http.Handler].
//
// Request logging runs per route. Panic recovery and CORS wrap the whole mux so that
// preflight requests and unmatched routes are covered too.
func New(opts Options) http.Handler {
	pages := MustLoadPages()

	router := NewBasicRouter()
	router.Use(Logging(opts.Logger))

	router.Handle(http.MethodGet, "/{$}", pages.Static("index"))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(Health))
	router.Handle(http.MethodGet, "/static/", StaticFiles())
	router.Handler(NewOAuthHandler(opts.Accounts, pages, opts.Logger))
	router.Handler(NewWidgetHandler(opts.Playback, opts.Logger))
	router.Handler(NewProfileHandler(opts.Accounts, opts.Logger))

	return Chain(router, Recover(opts.Logger), CORS())
}

// Health reports liveness. It is the target of the keep-alive ping.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
