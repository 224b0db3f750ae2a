// Package server provides HTTP routing, middleware, server lifecycle and OAuth handling for the CLI and web interfaces.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs first (outermost).
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on [http.ServeMux], so HEAD,
// 405 responses and the Allow header come from the mux.
//
// # Middleware
//
//   - [RequestLogger] : method, path, status, size and duration per request
//   - [Recoverer] : converts handler panics to 500 responses
//   - [RateLimit] : token bucket from golang.org/x/time/rate, 429 when exhausted
//
// # Lifecycle
//
// [NewHTTPServer] sets timeouts sized for a full import; [Serve] runs until its context is
// cancelled and then shuts down gracefully.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback for `ytbulk auth login`.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for a
// credential bundle, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
