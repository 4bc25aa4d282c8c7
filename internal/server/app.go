package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/apalmeirim/playlist-copycat/internal/copier"
	"github.com/apalmeirim/playlist-copycat/internal/models"
	"github.com/apalmeirim/playlist-copycat/internal/repositories"
	"github.com/apalmeirim/playlist-copycat/internal/session"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"github.com/apalmeirim/playlist-copycat/internal/spotify"
	"github.com/charmbracelet/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

// App wires the web routes onto the duplication pipeline: the
// authorize/callback pages populate the session credential, the copy
// form drives the Copier, and history lists past jobs.
type App struct {
	store  session.Store
	auth   *spotify.Authenticator
	copier *copier.Copier
	jobs   *repositories.JobRepository
	logger *log.Logger
	tmpl   *template.Template

	mu     sync.Mutex
	states map[string]string // session ID -> pending OAuth state
}

// AppOpts contains configuration options for creating an App.
type AppOpts struct {
	Store  session.Store
	Auth   *spotify.Authenticator
	Copier *copier.Copier
	Jobs   *repositories.JobRepository // nil disables history
	Logger *log.Logger
}

// NewApp creates the web application with parsed templates.
func NewApp(opts AppOpts) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &App{
		store:  opts.Store,
		auth:   opts.Auth,
		copier: opts.Copier,
		jobs:   opts.Jobs,
		logger: opts.Logger,
		tmpl:   tmpl,
		states: make(map[string]string),
	}, nil
}

// Register mounts all application routes on the router.
func (a *App) Register(router Router) {
	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.Index))
	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.Login))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.Callback))
	router.Handle("", "/copy", http.HandlerFunc(a.Copy))
	router.Handle(http.MethodGet, "/history", http.HandlerFunc(a.History))
	router.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.Logout))
}

func (a *App) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.tmpl.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("template render failed", "template", name, "error", err)
	}
}

// Index serves the landing page.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	a.render(w, "index.html", map[string]any{
		"Authenticated": sess.Authenticated(),
	})
}

// Login presents the provider authorization link for this session.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	state, err := shared.GenerateState()
	if err != nil {
		http.Error(w, "failed to start authorization", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	a.states[sess.ID] = state
	a.mu.Unlock()

	a.render(w, "login.html", map[string]any{
		"AuthURL": a.auth.AuthURL(state),
	})
}

// Callback completes the authorization-code flow: it validates the
// state, exchanges the code for a credential, stores it on the
// session, and sends the user to the copy form.
func (a *App) Callback(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	a.mu.Lock()
	expected, ok := a.states[sess.ID]
	delete(a.states, sess.ID)
	a.mu.Unlock()

	if !ok || r.URL.Query().Get("state") != expected {
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "authorization failed", http.StatusBadRequest)
		return
	}

	cred, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Warn("code exchange failed", "session", sess.ID, "error", err)
		http.Error(w, "authorization failed", http.StatusBadGateway)
		return
	}

	sess.Credential = cred
	a.store.Put(sess)

	http.Redirect(w, r, "/copy", http.StatusFound)
}

// Copy serves the duplication form on GET and runs the pipeline on POST.
func (a *App) Copy(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	if !sess.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if r.Method != http.MethodPost {
		a.render(w, "copy.html", map[string]any{})
		return
	}

	input := r.FormValue("playlist_url")
	result, err := a.runCopy(r, sess, input)

	if errors.Is(err, shared.ErrNotAuthenticated) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	data := map[string]any{}
	if err != nil {
		data["Error"] = userMessage(err, result)
	} else {
		data["Result"] = result
	}
	a.render(w, "copy.html", data)
}

// runCopy executes one duplication and records it in the job history.
func (a *App) runCopy(r *http.Request, sess *session.Session, input string) (*copier.CopyResult, error) {
	result, err := a.copier.Duplicate(r.Context(), sess, input, nil)

	if a.jobs != nil && sess.UserID != "" {
		a.recordJob(sess, input, result, err)
	}

	return result, err
}

func (a *App) recordJob(sess *session.Session, input string, result *copier.CopyResult, runErr error) {
	ref, refErr := copier.ParseRef(input)
	if refErr != nil {
		return
	}

	job := models.NewCopyJob(sess.UserID, ref.ID, "")
	if result != nil {
		job.RecordResult(result.NewPlaylistID, result.NewName, result.CoverURL, result.TracksTotal, result.TracksAdded)
	}

	if runErr == nil {
		job.MarkCompleted()
	} else {
		stage := ""
		var se *copier.StageError
		if errors.As(runErr, &se) {
			stage = string(se.Stage)
		}
		job.MarkFailed(stage, runErr)
	}

	if err := a.jobs.Create(job); err != nil {
		a.logger.Warn("failed to record copy job", "error", err)
	}
}

// History lists the session user's recent copy jobs.
func (a *App) History(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	if !sess.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	var jobs []*models.CopyJob
	if a.jobs != nil && sess.UserID != "" {
		var err error
		jobs, err = a.jobs.ListRecent(sess.UserID, 20)
		if err != nil {
			a.logger.Warn("failed to list copy jobs", "error", err)
		}
	}

	a.render(w, "history.html", map[string]any{"Jobs": jobs})
}

// Logout drops the stored session; the next request gets a fresh one.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	a.store.Clear(sess.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// userMessage turns a pipeline error into a display string, reporting
// partial progress when a destination playlist was created.
func userMessage(err error, result *copier.CopyResult) string {
	switch {
	case errors.Is(err, shared.ErrInvalidReference):
		return "That doesn't look like a playlist link or ID."
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return "Playlist not found, or it isn't accessible from your account."
	case errors.Is(err, shared.ErrRateLimited):
		return "Spotify is throttling requests right now. Try again in a minute."
	}

	var se *copier.StageError
	if errors.As(err, &se) && result != nil && result.NewPlaylistID != "" {
		if se.Stage == copier.StageCopyTracks {
			return fmt.Sprintf("Playlist was created, but only %d of %d tracks were copied.",
				result.TracksAdded, result.TracksTotal)
		}
	}

	return "Copying failed. Please try again."
}
