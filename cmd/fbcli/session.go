package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"Fbaccess/internal/api/loopback"
	"Fbaccess/internal/core/access"
	"Fbaccess/internal/core/auth"
	"Fbaccess/internal/core/images"
	"Fbaccess/internal/db/migrations"
	"Fbaccess/internal/db/postgres"
	"Fbaccess/internal/queue"

	_ "github.com/lib/pq"
)

// session owns everything a command needs and tears it down in Close.
type session struct {
	cfg       access.Config
	client    *access.Client
	queue     *queue.Queue
	storage   images.Storage
	imageErrs chan error
	db        *sql.DB
}

func openSession(ctx context.Context, cfg access.Config, clientOpts ...access.Option) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opts := []queue.Option{queue.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout})}
	if cfg.RateLimitRPS > 0 {
		opts = append(opts, queue.WithRateLimit(cfg.RateLimitRPS, 1))
	}
	q := queue.New(opts...)
	q.Start(ctx)

	s := &session{cfg: cfg, queue: q, imageErrs: make(chan error, 1)}

	storage, err := s.openStorage(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.storage = storage

	imgs, err := images.NewService(storage, images.NewQueueDownloader(q),
		images.WithProcessor(images.NewProcessor()),
		images.WithErrorHandler(func(url, cacheKey string, err error) {
			select {
			case s.imageErrs <- err:
			default:
			}
		}),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	client, err := access.NewClient(cfg, q, imgs, clientOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	client.AddResponseCodeListener(func(ev queue.ResponseCodeEvent) {
		if queue.IsAuthError(ev.Err) {
			slog.Warn("[FB-ACCESS] access token rejected, run `fbcli login` for a new one",
				"code", ev.Code, "message", ev.Message)
			return
		}
		slog.Warn("[FB-ACCESS] request failed", "job_id", ev.JobID, "code", ev.Code, "error", ev.Err)
	})
	s.client = client
	return s, nil
}

func (s *session) openStorage(ctx context.Context) (images.Storage, error) {
	switch s.cfg.Storage {
	case access.StoragePostgres:
		db, err := sql.Open("postgres", s.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := migrations.Up(db); err != nil {
			return nil, err
		}
		if s.cfg.ImageCacheTTL > 0 {
			n, err := postgres.DeleteExpiredTemporary(ctx, db, time.Now().Add(-s.cfg.ImageCacheTTL))
			if err != nil {
				slog.Warn("[FB-IMAGES] temp cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("[FB-IMAGES] temp cleanup completed", "entries_removed", n)
			}
		}
		return postgres.NewImageStore(db), nil
	default:
		disk, err := images.NewDiskStorage(s.cfg.ImageCachePath, s.cfg.ImageCacheTTL)
		if err != nil {
			return nil, err
		}
		if _, err := disk.Cleanup(); err != nil {
			slog.Warn("[FB-IMAGES] temp cleanup failed", "error", err)
		}
		return disk, nil
	}
}

// newLoginAuthenticator starts the loopback server and returns an authenticator that
// drives the browser through it. stop shuts the server down.
func newLoginAuthenticator(cfg access.Config, errW io.Writer) (a *auth.Authenticator, redirectURI string, stop func(), err error) {
	server, err := loopback.NewServer(cfg.LoopbackAddr, cfg.CookieSecret, loopback.WithOpener(func(loginURL string) error {
		_, err := fmt.Fprintf(errW, "Open %s in a browser to log in.\n", loginURL)
		return err
	}))
	if err != nil {
		return nil, "", nil, err
	}
	if err := server.Start(); err != nil {
		return nil, "", nil, err
	}
	stop = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("[FB-LOOPBACK] shutdown failed", "error", err)
		}
	}

	var authOpts []auth.Option
	if cfg.ClientSecret != "" {
		authOpts = append(authOpts, auth.WithClientSecret(cfg.ClientSecret))
	}
	a, err = auth.NewAuthenticator(cfg.GraphURL, server, authOpts...)
	if err != nil {
		stop()
		return nil, "", nil, err
	}

	redirectURI = cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = server.RedirectURI()
	}
	return a, redirectURI, stop, nil
}

func (s *session) Close() {
	s.queue.Stop()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
	}
}
