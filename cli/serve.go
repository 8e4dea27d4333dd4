package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/app/cache"
	"inkwell/app/config"
	"inkwell/app/logger"
	"inkwell/app/media"
	"inkwell/app/middleware"
	"inkwell/app/pagination"
	"inkwell/app/repositories"
	"inkwell/app/repositories/postgres"
	"inkwell/app/routes"
	"inkwell/app/services"

	"github.com/gorilla/securecookie"
	log "github.com/sirupsen/logrus"
)

// backend is the store and cache a command works against.
type backend struct {
	store *repositories.Store
	cache cache.Cache
	cfg   *config.Config
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(ctx, cache.Options{Kind: cfg.Cache, TTL: cfg.CacheTTL, RedisAddr: cfg.RedisAddr})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to set up cache: %w", err)
	}
	return &backend{store: store, cache: c, cfg: cfg}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresURL, cfg.PostgresMaxConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewStore(pool), nil
	default:
		db, err := repositories.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open Badger DB: %w", err)
		}
		return repositories.NewBadgerStore(db), nil
	}
}

func (b *backend) Close() {
	if err := b.cache.Close(); err != nil {
		log.WithError(err).Warn("failed to close cache")
	}
	if err := b.store.Close(); err != nil {
		log.WithError(err).Warn("failed to close store")
	}
}

// handler wires services and routes over b.
func (b *backend) handler(cfg *config.Config) (http.Handler, error) {
	var images services.ImageStore
	var mediaHandler http.Handler
	if cfg.MediaDir != "" {
		fs, err := media.NewFileStore(cfg.MediaDir)
		if err != nil {
			return nil, err
		}
		images, mediaHandler = fs, fs.Handler()
	}

	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		log.Warnf("%sSESSION_KEY is not set; sessions will not survive a restart", config.Prefix)
	}

	return routes.SetupRoutes(routes.Deps{
		Feed:     services.NewFeedService(b.store, b.cache, pagination.New(cfg.PageSize, cfg.StrictPagination)),
		Posts:    services.NewPostService(b.store, b.cache, images, services.SystemClock),
		Follows:  services.NewFollowService(b.store, b.cache),
		Sessions: middleware.NewSessionStore(key),
		Authors:  b.store.Authors,
		Media:    mediaHandler,
	}), nil
}

// serve starts the blog server and blocks until SIGINT or SIGTERM.
func (c *CLI) serve(args []string) int {
	cfg, ok := c.config()
	if !ok {
		return 1
	}
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	flags.SetOutput(c.errOut)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if err := logger.Init(c.errOut, cfg.LogLevel, cfg.LogFormat); err != nil {
		c.failf("Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to open backend")
		return 1
	}
	defer b.Close()

	handler, err := b.handler(cfg)
	if err != nil {
		log.WithError(err).Error("failed to set up routes")
		return 1
	}

	srv := routes.NewServer(cfg.Addr, handler)
	log.WithFields(log.Fields{"addr": cfg.Addr, "store": cfg.Store, "cache": cfg.Cache}).Info("starting blog server")
	if err := runServer(ctx, srv, cfg.ShutdownTimeout); err != nil {
		log.WithError(err).Error("server stopped")
		return 1
	}
	log.Info("server stopped")
	return 0
}

// runServer serves until ctx is done, then shuts down within timeout.
func runServer(ctx context.Context, srv *http.Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
