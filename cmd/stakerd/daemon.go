package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"devtoken/config"
	"devtoken/core"
	"devtoken/core/events"
	"devtoken/crypto"
	"devtoken/gateway/middleware"
	"devtoken/gateway/routes"
	"devtoken/indexer"
	"devtoken/storage"
)

// daemon owns every long-lived resource of a running node.
type daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      storage.Database
	events  *gorm.DB
	node    *core.Node
	feed    *events.Feed
	handler http.Handler
}

func newDaemon(ctx context.Context, cfg *config.Config, operator crypto.Address, logger *slog.Logger) (*daemon, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	spec, err := cfg.EnsureGenesis(operator)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	plan, err := spec.Resolve()
	if err != nil {
		return nil, fmt.Errorf("genesis %s: %w", cfg.GenesisFile, err)
	}

	db, err := openState(cfg)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	d := &daemon{cfg: cfg, logger: logger, db: db, feed: events.NewFeed()}

	d.events, err = indexer.Open(cfg.IndexerDSN)
	if err != nil {
		d.Close()
		return nil, err
	}
	ix, err := indexer.New(d.events, logger.With("component", "indexer"))
	if err != nil {
		d.Close()
		return nil, err
	}

	d.node = core.NewNode(db)
	d.node.SetLogger(logger)
	d.node.SetPublisher(events.Publishers{d.feed, ix})
	applied, err := d.node.ApplyGenesis(ctx, plan)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("apply genesis: %w", err)
	}
	if !applied {
		logger.Info("existing state found, genesis skipped")
	}

	limits := make(map[string]middleware.RateLimit, len(routes.Groups))
	for _, group := range routes.Groups {
		limits[group] = middleware.RateLimit{RatePerSecond: cfg.RateLimit.RatePerSecond, Burst: cfg.RateLimit.Burst}
	}
	router, err := routes.New(routes.Config{
		Ledger:  d.node,
		History: ix,
		Feed:    d.feed,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.Secret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew(),
		}, logger),
		RateLimiter: middleware.NewRateLimiter(limits, logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: cfg.Observability.ServiceName,
			LogRequests: cfg.Observability.LogRequests,
			Enabled:     cfg.Observability.Metrics || cfg.Observability.Tracing,
		}, logger),
		Logger: logger,
	})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("configure routes: %w", err)
	}
	d.handler = router
	if cfg.Observability.Tracing {
		d.handler = otelhttp.NewHandler(router, cfg.Observability.ServiceName)
	}
	logger.Info("gateway auth configured", "auth", cfg.Auth)
	if !cfg.Auth.Enabled {
		logger.Warn("gateway authentication disabled; callers are taken from the " + middleware.CallerHeader + " header")
	}
	return d, nil
}

// openState opens the configured state backend.
func openState(cfg *config.Config) (storage.Database, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StateBackend)) {
	case config.BackendBolt:
		return storage.NewBoltDB(cfg.BoltPath())
	case "", config.BackendLevelDB:
		return storage.NewLevelDB(cfg.LevelDBPath())
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// the server down gracefully.
func (d *daemon) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", d.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return d.serveOn(ctx, listener)
}

func (d *daemon) serveOn(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:      d.handler,
		ReadTimeout:  time.Duration(d.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(d.cfg.WriteTimeout) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("gateway listening", "addr", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	d.logger.Info("shutting down gateway")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// Close releases the databases. It is safe to call more than once.
func (d *daemon) Close() {
	if d.events != nil {
		if sqlDB, err := d.events.DB(); err == nil {
			_ = sqlDB.Close()
		}
		d.events = nil
	}
	if d.db != nil {
		d.db.Close()
		d.db = nil
	}
}
