// Package spotify wraps the Spotify Web API playlist endpoints and the
// OAuth2 authorization-code flow.
//
// [Client] owns every endpoint shape the copier needs: playlist read,
// paginated items read, playlist create, batched item adds, cover
// upload, and current-user lookup. Responses are decoded into typed
// structs and failures are mapped onto the sentinel errors in
// internal/shared (not found, rate limited, payload too large,
// upstream).
//
// [Authenticator] is the credential manager: it builds the authorize
// URL (with forced consent), exchanges callback codes for credentials,
// and hands callers a valid access token, refreshing behind the scenes
// when the stored token is about to lapse.
//
// API response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify
