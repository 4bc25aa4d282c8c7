package main

import (
	"context"
	"fmt"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/copier"
	"github.com/apalmeirim/playlist-copycat/internal/session"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"github.com/apalmeirim/playlist-copycat/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Copy duplicates a playlist into the authorized account using the
// tokens saved in the config file.
func (r *Runner) Copy(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("playlist")
	if input == "" {
		return fmt.Errorf("%w: playlist URL or ID is required", shared.ErrMissingArgument)
	}

	configPath := cmd.String("config")
	config := r.loadConfig(configPath)
	if err := config.Validate(); err != nil {
		return err
	}

	token := config.Credentials.Spotify.Token()
	if token == nil {
		return fmt.Errorf("%w: run 'copycat auth' first", shared.ErrNotAuthenticated)
	}

	auth, err := spotify.NewAuthenticator(config.Credentials.Spotify, r.logger)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	client := spotify.NewClient(spotify.ClientOpts{
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})

	dup := copier.NewCopier(copier.CopierOpts{
		API:         client,
		Tokens:      auth,
		Logger:      r.logger,
		PageSize:    config.Copy.PageSize,
		CoverSettle: config.Copy.CoverSettle(),
	})

	sess := &session.Session{
		ID:         shared.GenerateID(),
		Credential: &session.Credential{Token: token, Scopes: spotify.Scopes},
		CreatedAt:  time.Now(),
	}

	progress := make(chan copier.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Total > 0 {
				r.writePlain("→ %s (%d/%d)\n", update.Message, update.Step, update.Total)
			} else {
				r.writePlain("→ %s\n", update.Message)
			}
		}
	}()

	result, copyErr := dup.Duplicate(ctx, sess, input, progress)
	close(progress)
	<-done

	// The copy may have refreshed the token. Persist the new one so the
	// next invocation skips the refresh.
	if sess.Credential != nil && sess.Credential.Token != nil &&
		sess.Credential.Token.AccessToken != token.AccessToken {
		if err := config.Credentials.Spotify.Update(sess.Credential.Token); err == nil {
			if err := shared.SaveConfig(configPath, config); err != nil {
				r.logger.Warn("failed to save refreshed tokens", "error", err)
			}
		}
	}

	if copyErr != nil {
		if result != nil && result.TracksAdded < result.TracksTotal {
			r.writePlainln("⚠ Playlist %q was created, but only %d of %d tracks were copied.",
				result.NewName, result.TracksAdded, result.TracksTotal)
		}
		return fmt.Errorf("copy failed: %w", copyErr)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainln("✓ Created %q with %d tracks", result.NewName, result.TracksAdded)
	if result.CoverURL != "" {
		r.writePlain("  Cover: %s\n", result.CoverURL)
	}

	return nil
}
