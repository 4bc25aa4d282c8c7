package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apalmeirim/playlist-copycat/internal/copier"
	"github.com/apalmeirim/playlist-copycat/internal/repositories"
	"github.com/apalmeirim/playlist-copycat/internal/server"
	"github.com/apalmeirim/playlist-copycat/internal/session"
	"github.com/apalmeirim/playlist-copycat/internal/shared"
	"github.com/apalmeirim/playlist-copycat/internal/spotify"
	"github.com/urfave/cli/v3"
)

// Serve runs the playlist copy web application until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))
	if err := config.Validate(); err != nil {
		return err
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

	var jobs *repositories.JobRepository
	if !cmd.Bool("no-history") {
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Database)
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		jobs = repositories.NewJobRepository(db)
	}

	store := session.NewMemoryStore()
	app, err := server.NewApp(server.AppOpts{
		Store:  store,
		Auth:   auth,
		Copier: dup,
		Jobs:   jobs,
		Logger: r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	router := server.NewBasicRouter()
	router.Use(
		server.LoggingMiddleware(r.logger),
		server.SessionMiddleware(store, config.Server.CookieName),
	)
	app.Register(router)

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.Server.Addr()
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("listening at http://%v", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		r.logger.Infof("received %v, shutting down", sig)
	case <-ctx.Done():
		r.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}
