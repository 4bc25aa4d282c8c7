package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Spotify API errors
	ErrUpstream         = fmt.Errorf("spotify request failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrRateLimited      = fmt.Errorf("rate limited by spotify")
	ErrPayloadTooLarge  = fmt.Errorf("payload exceeds spotify limit")

	// Input validation errors
	ErrInvalidReference = fmt.Errorf("invalid playlist reference")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
)
