package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/session"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"golang.org/x/oauth2"
)

func testAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	auth, err := NewAuthenticator(shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://localhost:8888/callback",
	}, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("failed to create authenticator: %v", err)
	}
	return auth
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()

	t.Run("NewAuthenticator", func(t *testing.T) {
		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewAuthenticator(shared.SpotifyConfig{ClientID: "only-id"}, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Valid Credentials", func(t *testing.T) {
			auth := testAuthenticator(t)
			if auth.Config().ClientID != "test_client_id" {
				t.Errorf("unexpected client ID %s", auth.Config().ClientID)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		auth := testAuthenticator(t)

		raw := auth.AuthURL("state123")
		parsed, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("failed to parse auth URL: %v", err)
		}

		if parsed.Host != "accounts.spotify.com" {
			t.Errorf("unexpected host %s", parsed.Host)
		}

		q := parsed.Query()
		if q.Get("state") != "state123" {
			t.Errorf("expected state parameter, got %q", q.Get("state"))
		}
		if q.Get("show_dialog") != "true" {
			t.Error("expected show_dialog=true so the consent screen always appears")
		}
		if q.Get("redirect_uri") != "http://localhost:8888/callback" {
			t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
		}

		scopes := q.Get("scope")
		for _, want := range []string{"playlist-modify-public", "playlist-modify-private", "ugc-image-upload"} {
			if !strings.Contains(scopes, want) {
				t.Errorf("expected scope %s in %q", want, scopes)
			}
		}
	})

	t.Run("ValidToken", func(t *testing.T) {
		t.Run("No Credential", func(t *testing.T) {
			auth := testAuthenticator(t)
			sess := &session.Session{ID: "s1"}

			_, err := auth.ValidToken(ctx, sess)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Fresh Token Passes Through", func(t *testing.T) {
			auth := testAuthenticator(t)
			sess := &session.Session{
				ID: "s1",
				Credential: &session.Credential{
					Token: &oauth2.Token{
						AccessToken: "fresh",
						Expiry:      time.Now().Add(time.Hour),
					},
				},
			}

			token, err := auth.ValidToken(ctx, sess)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "fresh" {
				t.Errorf("expected the stored token, got %q", token)
			}
		})

		t.Run("Expired Token Refreshes Silently", func(t *testing.T) {
			refreshed := false
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				refreshed = true
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh1" {
					t.Errorf("unexpected refresh request %v", r.Form)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token": "renewed", "token_type": "Bearer", "expires_in": 3600}`)
			}))
			defer srv.Close()

			auth := testAuthenticator(t)
			auth.Config().Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

			sess := &session.Session{
				ID: "s1",
				Credential: &session.Credential{
					Token: &oauth2.Token{
						AccessToken:  "stale",
						RefreshToken: "refresh1",
						Expiry:       time.Now().Add(-time.Minute),
					},
				},
			}

			token, err := auth.ValidToken(ctx, sess)
			if err != nil {
				t.Fatalf("expected silent refresh, got %v", err)
			}
			if !refreshed {
				t.Error("expected a refresh request")
			}
			if token != "renewed" {
				t.Errorf("expected renewed token, got %q", token)
			}
			if sess.Credential == nil || sess.Credential.Token.AccessToken != "renewed" {
				t.Error("expected the refreshed token stored on the session")
			}
		})

		t.Run("Refresh Failure Clears Credential", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error": "invalid_grant"}`)
			}))
			defer srv.Close()

			auth := testAuthenticator(t)
			auth.Config().Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

			sess := &session.Session{
				ID: "s1",
				Credential: &session.Credential{
					Token: &oauth2.Token{
						AccessToken:  "stale",
						RefreshToken: "revoked",
						Expiry:       time.Now().Add(-time.Minute),
					},
				},
			}

			_, err := auth.ValidToken(ctx, sess)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected wrapped ErrRefreshFailed, got %v", err)
			}
			if sess.Credential != nil {
				t.Error("expected the dead credential dropped from the session")
			}
		})

		t.Run("Expired Without Refresh Token", func(t *testing.T) {
			auth := testAuthenticator(t)
			sess := &session.Session{
				ID: "s1",
				Credential: &session.Credential{
					Token: &oauth2.Token{
						AccessToken: "stale",
						Expiry:      time.Now().Add(-time.Minute),
					},
				},
			}

			_, err := auth.ValidToken(ctx, sess)
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if sess.Credential != nil {
				t.Error("expected the credential cleared")
			}
		})
	})
}
