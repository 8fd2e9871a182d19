// Package reposerve exposes a local repository backend to remote jackalope clients over
// the websocket RPC protocol.
package reposerve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	jackalope "github.com/jackalope/jackalope.go"
	"github.com/jackalope/jackalope.go/pkg/logger"
	"github.com/jackalope/jackalope.go/pkg/nodetype"
	"github.com/jackalope/jackalope.go/pkg/transport/wsrpc"
)

const shutdownTimeout = 5 * time.Second

// Run listens on cfg.Listen and serves until ctx is cancelled.
// The configuration should be validated before calling this function.
func Run(ctx context.Context, cfg *Config) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}
	return Serve(ctx, ln, cfg)
}

// Serve opens the backend and serves it on ln until ctx is cancelled. ln is closed on
// return.
func Serve(ctx context.Context, ln net.Listener, cfg *Config) error {
	l, err := newLogger(cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer l.Close() //nolint:errcheck

	repo, err := openBackend(ctx, cfg, l)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		if closeErr := repo.Close(context.Background()); closeErr != nil {
			l.Warn("failed to close backend", "error", closeErr)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, wsrpc.NewHandler(repo.Transport(), wsrpc.WithHandlerLogger(l)))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	l.Info("serving repository", "addr", ln.Addr().String(), "path", cfg.Path, "backend", cfg.Backend)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(cfg *Config) (*logger.LogData, error) {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	build := logger.NewBuild().FromBuffer(os.Stderr).Level(level)
	if cfg.LogFile != "" {
		build = build.FromPath(cfg.LogFile)
	}
	l, err := build.Make()
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return l, nil
}

func openBackend(ctx context.Context, cfg *Config, l logger.Logger) (*jackalope.Repository, error) {
	u, err := url.Parse(cfg.Backend)
	if err != nil {
		return nil, err
	}
	conf := jackalope.NewConfig(u)
	conf.Logger = l

	repo, err := jackalope.FromConfig(ctx, conf)
	if err != nil {
		return nil, err
	}
	if cfg.NodeTypes == "" {
		return repo, nil
	}
	if err := registerNodeTypes(ctx, repo, cfg.NodeTypes); err != nil {
		_ = repo.Close(ctx)
		return nil, err
	}
	l.Info("registered node types", "file", cfg.NodeTypes)
	return repo, nil
}

func registerNodeTypes(ctx context.Context, repo *jackalope.Repository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	defs, err := nodetype.ParseYAML(data)
	if err != nil {
		return fmt.Errorf("node types %s: %w", path, err)
	}
	return repo.RegisterNodeTypes(ctx, defs)
}
