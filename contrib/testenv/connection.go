// Package testenv provides helpers for tests and examples that need a live jackalope
// repository.
//
// The repository is chosen by JACKALOPE_URL and defaults to a fresh in-memory one, so the
// same example runs unchanged against SQLite, a snapshot directory or a remote server.
package testenv

import (
	"context"
	"fmt"
	"os"

	jackalope "github.com/jackalope/jackalope.go"
	"github.com/jackalope/jackalope.go/pkg/logger"
)

const (
	// EnvURL names the repository to connect to. Unset means a private in-memory
	// repository per call.
	EnvURL = "JACKALOPE_URL"

	// EnvVerbose makes the repository log through a TestLogHandler when set to "1".
	EnvVerbose = "JACKALOPE_TEST_VERBOSE"
)

// AdminUser is the user every testenv session logs in as.
const AdminUser = "admin"

func MustNew(workspace string, paths ...string) *jackalope.Session {
	s, err := New(context.Background(), workspace, paths...)
	if err != nil {
		panic(fmt.Sprintf("failed to open test session: %v", err))
	}
	return s
}

// New opens the configured repository and logs into workspace. Every path in paths is
// removed first and the removal saved, so reruns against a persistent backend start
// clean.
//
// Closing the session's repository is up to the caller.
func New(ctx context.Context, workspace string, paths ...string) (*jackalope.Session, error) {
	cfg, err := jackalope.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger.Nop()
	if os.Getenv(EnvVerbose) == "1" {
		cfg.Logger = logger.New(NewTestLogHandler(WithIgnoreDebug()))
	}

	repo, err := jackalope.FromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := repo.Login(ctx, jackalope.NewSimpleCredentials(AdminUser, nil), workspace)
	if err != nil {
		_ = repo.Close(ctx)
		return nil, err
	}

	if err := reset(ctx, s, paths...); err != nil {
		s.Logout()
		_ = repo.Close(ctx)
		return nil, err
	}
	return s, nil
}

func reset(ctx context.Context, s *jackalope.Session, paths ...string) error {
	for _, p := range paths {
		ok, err := s.NodeExists(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", p, err)
		}
		if !ok {
			continue
		}
		if err := s.RemoveItem(ctx, p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if !s.HasPendingChanges() {
		return nil
	}
	if err := s.Save(ctx); err != nil {
		return fmt.Errorf("failed to save cleanup: %w", err)
	}
	return nil
}
