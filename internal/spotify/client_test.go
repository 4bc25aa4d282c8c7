package spotify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/apalmeirim/playlist-copycat/internal/shared"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(ClientOpts{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     shared.NewLogger(io.Discard),
		RPS:        1000,
	})
	return client, srv
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Playlist", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/abc123" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer token, got %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":          "abc123",
				"name":        "Focus",
				"description": "instrumentals",
				"public":      true,
				"owner":       map[string]any{"id": "owner1", "display_name": "Owner"},
				"tracks":      map[string]any{"total": 42},
				"images":      []map[string]any{{"url": "https://cdn.example.com/a.jpg", "height": 640, "width": 640}},
			})
		}))
		defer srv.Close()

		playlist, err := client.Playlist(ctx, "tok", "abc123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != "Focus" || playlist.Description != "instrumentals" {
			t.Errorf("unexpected playlist %+v", playlist)
		}
		if !playlist.Public {
			t.Error("expected public playlist")
		}
		if playlist.Tracks.Total != 42 {
			t.Errorf("expected 42 tracks, got %d", playlist.Tracks.Total)
		}
		if len(playlist.Images) != 1 || playlist.Images[0].URL != "https://cdn.example.com/a.jpg" {
			t.Errorf("unexpected images %+v", playlist.Images)
		}
	})

	t.Run("Omitted Metadata Decodes To Zero Values", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id": "abc123", "name": "Sparse"}`)
		}))
		defer srv.Close()

		playlist, err := client.Playlist(ctx, "tok", "abc123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Description != "" || playlist.Public {
			t.Errorf("expected empty description and private default, got %+v", playlist)
		}
	})

	t.Run("PlaylistItemsPage", func(t *testing.T) {
		t.Run("Query Parameters", func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlists/abc123/tracks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("offset") != "200" || q.Get("limit") != "100" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				fmt.Fprint(w, `{"items": [], "total": 0}`)
			}))
			defer srv.Close()

			if _, err := client.PlaylistItemsPage(ctx, "tok", "abc123", 200, 100); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Clamps Oversized Limit", func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("limit"); got != "100" {
					t.Errorf("expected limit clamped to 100, got %s", got)
				}
				fmt.Fprint(w, `{"items": []}`)
			}))
			defer srv.Close()

			if _, err := client.PlaylistItemsPage(ctx, "tok", "abc123", 0, 500); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Null Track Entries Survive Decoding", func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"items": [{"track": null}, {"track": {"uri": "spotify:track:1"}}], "total": 2, "next": "https://api.spotify.com/next"}`)
			}))
			defer srv.Close()

			page, err := client.PlaylistItemsPage(ctx, "tok", "abc123", 0, 100)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(page.Items) != 2 {
				t.Fatalf("expected 2 raw items, got %d", len(page.Items))
			}
			if page.Items[0].Track != nil {
				t.Error("expected first item to carry a null track")
			}
			if page.Items[1].Track == nil || page.Items[1].Track.URI != "spotify:track:1" {
				t.Errorf("unexpected second item %+v", page.Items[1])
			}
			if !page.HasMore() {
				t.Error("expected HasMore with a next link")
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/users/user1/playlists" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}

			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body["name"] != "Copy of Focus" || body["description"] != "instrumentals" || body["public"] != true {
				t.Errorf("unexpected body %v", body)
			}

			fmt.Fprint(w, `{"id": "new1", "name": "Copy of Focus"}`)
		}))
		defer srv.Close()

		playlist, err := client.CreatePlaylist(ctx, "tok", "user1", "Copy of Focus", "instrumentals", true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.ID != "new1" {
			t.Errorf("expected new1, got %s", playlist.ID)
		}
	})

	t.Run("AddItems", func(t *testing.T) {
		t.Run("Chunks Of One Hundred", func(t *testing.T) {
			var batches [][]string
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					URIs []string `json:"uris"`
				}
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				batches = append(batches, body.URIs)
				fmt.Fprint(w, `{"snapshot_id": "snap"}`)
			}))
			defer srv.Close()

			uris := make([]string, 250)
			for i := range uris {
				uris[i] = fmt.Sprintf("spotify:track:%d", i)
			}

			added, err := client.AddItems(ctx, "tok", "abc123", uris)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if added != 250 {
				t.Errorf("expected 250 added, got %d", added)
			}
			if len(batches) != 3 {
				t.Fatalf("expected 3 batches, got %d", len(batches))
			}
			if len(batches[0]) != 100 || len(batches[1]) != 100 || len(batches[2]) != 50 {
				t.Errorf("unexpected batch sizes %d/%d/%d", len(batches[0]), len(batches[1]), len(batches[2]))
			}
			if batches[0][0] != "spotify:track:0" || batches[2][49] != "spotify:track:249" {
				t.Error("batches should preserve order")
			}
		})

		t.Run("No URIs Makes No Requests", func(t *testing.T) {
			requests := 0
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
			}))
			defer srv.Close()

			added, err := client.AddItems(ctx, "tok", "abc123", nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if added != 0 || requests != 0 {
				t.Errorf("expected nothing to happen, got added=%d requests=%d", added, requests)
			}
		})

		t.Run("Failed Chunk Aborts Remainder", func(t *testing.T) {
			requests := 0
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
				if requests == 2 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				fmt.Fprint(w, `{"snapshot_id": "snap"}`)
			}))
			defer srv.Close()

			uris := make([]string, 250)
			for i := range uris {
				uris[i] = fmt.Sprintf("spotify:track:%d", i)
			}

			added, err := client.AddItems(ctx, "tok", "abc123", uris)
			if !errors.Is(err, shared.ErrRateLimited) {
				t.Errorf("expected ErrRateLimited, got %v", err)
			}
			if added != 100 {
				t.Errorf("expected 100 added before the failure, got %d", added)
			}
			if requests != 2 {
				t.Errorf("expected the third chunk to be skipped, got %d requests", requests)
			}
		})
	})

	t.Run("UploadCover", func(t *testing.T) {
		t.Run("Sends Base64 JPEG Body", func(t *testing.T) {
			image := []byte("fake-jpeg-data")
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPut || r.URL.Path != "/playlists/abc123/images" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Content-Type"); got != "image/jpeg" {
					t.Errorf("expected image/jpeg content type, got %q", got)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != base64.StdEncoding.EncodeToString(image) {
					t.Error("expected base64-encoded body")
				}
				w.WriteHeader(http.StatusAccepted)
			}))
			defer srv.Close()

			if err := client.UploadCover(ctx, "tok", "abc123", image); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Oversized Image Rejected Locally", func(t *testing.T) {
			requests := 0
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests++
			}))
			defer srv.Close()

			big := bytes.Repeat([]byte("x"), 300*1024)
			err := client.UploadCover(ctx, "tok", "abc123", big)
			if !errors.Is(err, shared.ErrPayloadTooLarge) {
				t.Errorf("expected ErrPayloadTooLarge, got %v", err)
			}
			if requests != 0 {
				t.Error("oversized payload should never reach the provider")
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"id": "user1", "display_name": "Someone"}`)
		}))
		defer srv.Close()

		user, err := client.CurrentUser(ctx, "tok")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "user1" {
			t.Errorf("expected user1, got %s", user.ID)
		}
	})

	t.Run("DownloadImage", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Error("image downloads must not carry the access token")
			}
			w.Write([]byte("image-bytes"))
		}))
		defer srv.Close()

		data, err := client.DownloadImage(ctx, srv.URL+"/cover.jpg")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != "image-bytes" {
			t.Errorf("unexpected payload %q", data)
		}
	})

	t.Run("Error Mapping", func(t *testing.T) {
		cases := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, shared.ErrTokenExpired},
			{http.StatusNotFound, shared.ErrPlaylistNotFound},
			{http.StatusTooManyRequests, shared.ErrRateLimited},
			{http.StatusRequestEntityTooLarge, shared.ErrPayloadTooLarge},
			{http.StatusInternalServerError, shared.ErrUpstream},
			{http.StatusBadGateway, shared.ErrUpstream},
		}

		for _, tc := range cases {
			t.Run(http.StatusText(tc.status), func(t *testing.T) {
				client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
				}))
				defer srv.Close()

				_, err := client.Playlist(ctx, "tok", "abc123")
				if !errors.Is(err, tc.want) {
					t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
				}
			})
		}
	})

	t.Run("Missing Token", func(t *testing.T) {
		requests := 0
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer srv.Close()

		_, err := client.Playlist(ctx, "", "abc123")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if requests != 0 {
			t.Error("expected no request without a token")
		}
	})

	t.Run("Malformed Response", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id": `)
		}))
		defer srv.Close()

		_, err := client.Playlist(ctx, "tok", "abc123")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream for malformed JSON, got %v", err)
		}
		if err == nil || !strings.Contains(err.Error(), "decode") {
			t.Errorf("expected decode failure detail, got %v", err)
		}
	})
}
