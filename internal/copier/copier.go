package copier

import (
	"context"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/session"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"github.com/apalmeirim/playlist-copycat/internal/spotify"
	"github.com/charmbracelet/log"
)

// NamePrefix is prepended to the source playlist's name. Always
// applied, so re-copying a copy produces "Copy of Copy of ...".
const NamePrefix = "Copy of "

// DefaultCoverSettle is how long to wait after uploading a cover before
// reading it back. The provider ingests images asynchronously; an
// immediate re-read usually shows no image yet.
const DefaultCoverSettle = 2 * time.Second

// PlaylistAPI is the slice of the Spotify client the pipeline drives.
type PlaylistAPI interface {
	Playlist(ctx context.Context, token, playlistID string) (*spotify.Playlist, error)
	PlaylistItemsPage(ctx context.Context, token, playlistID string, offset, limit int) (*spotify.ItemsPage, error)
	CreatePlaylist(ctx context.Context, token, userID, name, description string, public bool) (*spotify.Playlist, error)
	AddItems(ctx context.Context, token, playlistID string, uris []string) (int, error)
	UploadCover(ctx context.Context, token, playlistID string, image []byte) error
	CurrentUser(ctx context.Context, token string) (*spotify.User, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, error)
}

// TokenSource yields a valid access token for a session, or
// [shared.ErrNotAuthenticated] when the user must reauthorize.
type TokenSource interface {
	ValidToken(ctx context.Context, sess *session.Session) (string, error)
}

// CopyResult describes the outcome of a duplication run. On failure it
// still carries whatever progress was made, so callers can report
// "playlist created with N of M tracks copied".
type CopyResult struct {
	NewPlaylistID string `json:"new_playlist_id"`
	NewName       string `json:"new_name"`
	CoverURL      string `json:"cover_url,omitempty"`
	TracksTotal   int    `json:"tracks_total"`
	TracksAdded   int    `json:"tracks_added"`
}

// Copier runs the duplication pipeline. One call to [Copier.Duplicate]
// is one strictly sequential flow; concurrent calls for different
// sessions share nothing but the underlying HTTP client.
type Copier struct {
	api      PlaylistAPI
	tokens   TokenSource
	logger   *log.Logger
	pageSize int
	settle   time.Duration
	sleep    func(ctx context.Context, d time.Duration)
}

// CopierOpts contains configuration options for creating a Copier.
type CopierOpts struct {
	API         PlaylistAPI
	Tokens      TokenSource
	Logger      *log.Logger
	PageSize    int           // items per page request, defaults to the provider maximum
	CoverSettle time.Duration // defaults to DefaultCoverSettle
	Sleep       func(ctx context.Context, d time.Duration)
}

// NewCopier creates a Copier with the provided dependencies.
func NewCopier(opts CopierOpts) *Copier {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.PageSize <= 0 || opts.PageSize > spotify.MaxPageSize {
		opts.PageSize = spotify.MaxPageSize
	}
	if opts.CoverSettle <= 0 {
		opts.CoverSettle = DefaultCoverSettle
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}

	return &Copier{
		api:      opts.API,
		tokens:   opts.Tokens,
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		settle:   opts.CoverSettle,
		sleep:    opts.Sleep,
	}
}

// sleepCtx blocks for d or until ctx is done. The pause is local to one
// request and never blocks other concurrent duplications.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (c *Copier) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Duplicate copies the playlist referenced by input into the session
// user's account and returns the new playlist's identity.
//
// Parsing and authentication failures are reported before any provider
// call. Later failures return a [StageError] alongside a partial
// CopyResult; the destination playlist is never rolled back. Cover
// copying is best-effort and cannot fail the run.
func (c *Copier) Duplicate(ctx context.Context, sess *session.Session, input string, progress chan<- ProgressUpdate) (*CopyResult, error) {
	ref, err := ParseRef(input)
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.ValidToken(ctx, sess)
	if err != nil {
		return nil, err
	}

	logger := c.logger.With("playlist", ref.ID, "session", sess.ID)

	c.sendProgress(progress, fetchSourceUpdate(ref.ID))
	source, err := c.api.Playlist(ctx, token, ref.ID)
	if err != nil {
		return nil, stageErr(StageFetchSource, err)
	}

	name := NamePrefix + source.Name
	logger.Info("duplicating playlist", "source", source.Name, "dest", name)

	if sess.UserID == "" {
		user, err := c.api.CurrentUser(ctx, token)
		if err != nil {
			return nil, stageErr(StageCreateDest, err)
		}
		sess.UserID = user.ID
	}

	c.sendProgress(progress, createDestUpdate(name))
	dest, err := c.api.CreatePlaylist(ctx, token, sess.UserID, name, source.Description, source.Public)
	if err != nil {
		return nil, stageErr(StageCreateDest, err)
	}

	result := &CopyResult{NewPlaylistID: dest.ID, NewName: name}

	uris, err := c.collectAllTracks(ctx, token, ref.ID, progress)
	if err != nil {
		return result, stageErr(StageCopyTracks, err)
	}
	result.TracksTotal = len(uris)

	added, err := c.api.AddItems(ctx, token, dest.ID, uris)
	result.TracksAdded = added
	if err != nil {
		logger.Error("adding tracks aborted", "added", added, "total", len(uris), "error", err)
		return result, stageErr(StageCopyTracks, err)
	}
	c.sendProgress(progress, addBatchUpdate(added, len(uris)))

	result.CoverURL = c.copyCover(ctx, token, source, dest.ID, progress, logger)

	logger.Info("duplication complete", "id", dest.ID, "tracks", added, "cover", result.CoverURL != "")
	return result, nil
}

// collectAllTracks retrieves the full ordered URI sequence of a
// playlist. Pages are fetched sequentially from offset 0; items whose
// track reference is null (removed or unresolvable entries) are
// dropped. The loop ends only when a page comes back with zero raw
// items: the provider's next-page hint is unreliable near the boundary,
// and a page of all-null items must not stop collection early.
func (c *Copier) collectAllTracks(ctx context.Context, token, playlistID string, progress chan<- ProgressUpdate) ([]string, error) {
	var uris []string

	for offset := 0; ; offset += c.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.api.PlaylistItemsPage(ctx, token, playlistID, offset, c.pageSize)
		if err != nil {
			return nil, err
		}

		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if item.Track != nil && item.Track.URI != "" {
				uris = append(uris, item.Track.URI)
			}
		}

		c.sendProgress(progress, collectUpdate(len(uris)))
	}

	return uris, nil
}

// copyCover copies the source's primary cover image onto the
// destination and returns the destination's cover URL once the
// provider has processed it. Every failure path degrades to "no cover"
// rather than an error; an empty return means the caller should treat
// the cover as absent.
func (c *Copier) copyCover(ctx context.Context, token string, source *spotify.Playlist, destID string, progress chan<- ProgressUpdate, logger *log.Logger) string {
	if len(source.Images) == 0 {
		return ""
	}

	c.sendProgress(progress, copyCoverUpdate())

	image, err := c.api.DownloadImage(ctx, source.Images[0].URL)
	if err != nil {
		logger.Warn("cover download failed", "error", err)
		return ""
	}

	if err := c.api.UploadCover(ctx, token, destID, image); err != nil {
		logger.Warn("cover upload failed", "error", err)
		return ""
	}

	// The provider ingests covers asynchronously; give it a moment
	// before reading the processed image back.
	c.sleep(ctx, c.settle)

	dest, err := c.api.Playlist(ctx, token, destID)
	if err != nil {
		logger.Warn("cover confirmation read failed", "error", err)
		return ""
	}
	if len(dest.Images) == 0 {
		return ""
	}
	return dest.Images[0].URL
}
