package spotify

import (
	"context"
	"fmt"

	"github.com/apalmeirim/playlist-copycat/internal/session"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// Scopes are the grants the duplication pipeline needs: reading the
// source playlist, creating and modifying the destination, and
// uploading its cover image.
var Scopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"ugc-image-upload",
}

// Authenticator manages delegated-access credentials for web sessions:
// authorize URL construction, code exchange, and silent refresh.
type Authenticator struct {
	config *oauth2.Config
	logger *log.Logger
}

// NewAuthenticator creates an Authenticator from the configured Spotify credentials.
func NewAuthenticator(cfg shared.SpotifyConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &Authenticator{config: config, logger: logger}, nil
}

// AuthURL builds the provider's authorization URL for the given state
// token. show_dialog forces the consent screen even for users who
// already approved the app.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades a one-time authorization code for a credential.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*session.Credential, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
	}

	return &session.Credential{Token: token, Scopes: Scopes}, nil
}

// ValidToken returns a non-expired access token for the session,
// refreshing silently when the stored token is about to lapse. When no
// credential exists, or refresh fails, the session's credential is
// invalidated and [shared.ErrNotAuthenticated] is returned; callers
// translate that into a redirect to the authorization flow.
func (a *Authenticator) ValidToken(ctx context.Context, sess *session.Session) (string, error) {
	if !sess.Authenticated() {
		return "", shared.ErrNotAuthenticated
	}

	cred := sess.Credential
	if !cred.Expired() {
		return cred.Token.AccessToken, nil
	}

	if cred.Token.RefreshToken == "" {
		sess.Credential = nil
		return "", fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, shared.ErrTokenExpired)
	}

	token, err := a.config.TokenSource(ctx, cred.Token).Token()
	if err != nil {
		a.logger.Warn("token refresh failed", "session", sess.ID, "error", err)
		sess.Credential = nil
		return "", fmt.Errorf("%w: %w: %v", shared.ErrNotAuthenticated, shared.ErrRefreshFailed, err)
	}

	sess.Credential = &session.Credential{Token: token, Scopes: cred.Scopes}
	a.logger.Debug("refreshed access token", "session", sess.ID, "expiry", token.Expiry)

	return token.AccessToken, nil
}

// Config exposes the underlying OAuth2 config for the CLI's local
// callback server.
func (a *Authenticator) Config() *oauth2.Config {
	return a.config
}
