// Package server provides HTTP routing, middleware, and the web-facing
// handlers for the playlist copy app.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Web Application
//
// [App] serves the browser flow: a landing page, the authorize link,
// the OAuth callback that populates the session credential, the copy
// form that runs the duplication pipeline, a per-user job history, and
// logout. [SessionMiddleware] resolves the cookie-backed session before
// any handler runs, so handlers read the session from the request
// context and never touch cookies themselves.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the callback side of the CLI's
// authorization-code flow: a temporary localhost server validates the
// state parameter (CSRF protection), exchanges the authorization code
// for tokens, and sends the result through a channel. It only processes
// one callback to prevent replay attacks.
package server
