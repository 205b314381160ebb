// Package server provides HTTP routing, middleware and handlers for the nowplaying web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Handlers
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
//   - [OAuthHandler] : GET /login redirects to Spotify, GET /callback links the account and shows the widget key
//   - [WidgetHandler] : GET /currently-playing?userKey= returns the playback state as JSON
//   - [ProfileHandler] : GET /profile?user_key= returns a plain-text greeting for debugging
//
// Pages are rendered from embedded [html/template] files; /static/ serves the embedded assets.
//
// # Middleware
//
// [Logging] writes one structured line per request, [Recover] converts panics into 500s and
// [CORS] echoes the request origin with credentials allowed, so widgets can be embedded anywhere.
package server
