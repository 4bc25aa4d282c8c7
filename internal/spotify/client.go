package spotify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxPageSize is the largest items page Spotify serves per request.
	MaxPageSize = 100

	// MaxBatchSize is the most URIs Spotify accepts per add-items call.
	MaxBatchSize = 100

	// maxCoverPayload is the provider's cap on the base64-encoded cover image body.
	maxCoverPayload = 256 * 1024
)

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Owner identifies the user owning a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackSummary struct {
	Total int `json:"total"`
}

// Playlist represents a Spotify playlist's metadata.
//
// Description and Public decode to their zero values when the provider
// omits them, which is exactly what the copier propagates.
type Playlist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       Owner        `json:"owner"`
	Public      bool         `json:"public"`
	Tracks      trackSummary `json:"tracks"`
	Images      []Image      `json:"images"`
	URI         string       `json:"uri"`
}

// ItemTrack is the playable track inside a playlist item.
type ItemTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
	IsLocal bool   `json:"is_local"`
}

// PlaylistItem is one raw entry of a playlist items page. Track is nil
// for removed or otherwise unresolvable entries; callers filter those.
type PlaylistItem struct {
	AddedAt string     `json:"added_at"`
	Track   *ItemTrack `json:"track"`
}

// ItemsPage is one page of a playlist's items.
type ItemsPage struct {
	Items  []PlaylistItem `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// HasMore reports whether the provider claims another page exists.
// Unreliable near the end of a playlist; pagination terminates on an
// empty page instead.
func (p *ItemsPage) HasMore() bool {
	return p.Next != nil
}

// User represents the authenticated Spotify user profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Client is a typed wrapper over the Spotify Web API playlist
// endpoints. Access tokens are passed per call because each web
// session carries its own credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string       // defaults to the public Spotify API
	HTTPClient *http.Client // defaults to a client with a 30s timeout
	Logger     *log.Logger
	RPS        float64 // request pacing, defaults to 10 req/s
}

// NewClient creates a Spotify API client with the provided options.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.RPS <= 0 {
		opts.RPS = 10
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RPS), int(opts.RPS)),
		logger:     opts.Logger,
	}
}

// statusError maps a non-2xx Spotify status code onto the shared error taxonomy.
func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return shared.ErrTokenExpired
	case http.StatusNotFound:
		return shared.ErrPlaylistNotFound
	case http.StatusTooManyRequests:
		return shared.ErrRateLimited
	case http.StatusRequestEntityTooLarge:
		return shared.ErrPayloadTooLarge
	default:
		return fmt.Errorf("%w: status %d", shared.ErrUpstream, code)
	}
}

// do performs a paced, authenticated request and decodes the JSON response into result.
func (c *Client) do(req *http.Request, token string, result any) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}

	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstream, err)
		}
	}

	return nil
}

// doJSON performs an authenticated request with an optional JSON body.
func (c *Client) doJSON(ctx context.Context, token, method, endpoint string, body, result any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rdr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, token, result)
}

// Playlist retrieves a playlist's metadata by ID.
func (c *Client) Playlist(ctx context.Context, token, playlistID string) (*Playlist, error) {
	var playlist Playlist
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// PlaylistItemsPage retrieves one page of a playlist's items.
// Limit is clamped to the provider maximum of 100.
func (c *Client) PlaylistItemsPage(ctx context.Context, token, playlistID string, offset, limit int) (*ItemsPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	var page ItemsPage
	endpoint := fmt.Sprintf("/playlists/%s/tracks?offset=%d&limit=%d", playlistID, offset, limit)
	if err := c.doJSON(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePlaylist creates a playlist under the given user.
func (c *Client) CreatePlaylist(ctx context.Context, token, userID, name, description string, public bool) (*Playlist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist Playlist
	endpoint := fmt.Sprintf("/users/%s/playlists", userID)
	if err := c.doJSON(ctx, token, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddItems appends URIs to a playlist in consecutive chunks of at most
// MaxBatchSize, one request per chunk, preserving order. A failed chunk
// aborts the remainder; the returned count is how many URIs made it in
// before the failure.
func (c *Client) AddItems(ctx context.Context, token, playlistID string, uris []string) (int, error) {
	added := 0
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)

	for start := 0; start < len(uris); start += MaxBatchSize {
		if err := ctx.Err(); err != nil {
			return added, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
		}

		end := start + MaxBatchSize
		if end > len(uris) {
			end = len(uris)
		}
		chunk := uris[start:end]

		body := map[string]any{"uris": chunk}
		if err := c.doJSON(ctx, token, http.MethodPost, endpoint, body, nil); err != nil {
			return added, err
		}
		added += len(chunk)
	}

	return added, nil
}

// UploadCover sets a playlist's cover image. The raw JPEG bytes are
// base64-encoded here because the provider requires an encoded body.
func (c *Client) UploadCover(ctx context.Context, token, playlistID string, image []byte) error {
	encoded := base64.StdEncoding.EncodeToString(image)
	if len(encoded) > maxCoverPayload {
		return fmt.Errorf("%w: encoded cover is %d bytes", shared.ErrPayloadTooLarge, len(encoded))
	}

	endpoint := fmt.Sprintf("/playlists/%s/images", playlistID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+endpoint, bytes.NewBufferString(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	return c.do(req, token, nil)
}

// CurrentUser retrieves the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DownloadImage fetches raw image bytes from a cover URL. Cover images
// are served from a CDN and need no authorization.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image: %v", shared.ErrUpstream, err)
	}

	return data, nil
}
