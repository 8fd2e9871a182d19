package jackalope

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/logger"
)

// Config describes the repository to connect to.
type Config struct {
	// URL selects the transport by scheme: mem, sqlite, file, ws or wss.
	URL url.URL
	// Workspace is used by Login when no workspace name is given.
	Workspace string
	Logger    logger.Logger
	// Timeout bounds a single round trip of remote transports.
	Timeout time.Duration
}

// NewConfig creates a Config for the repository at u. A "workspace" query parameter sets
// the default workspace.
func NewConfig(u *url.URL) *Config {
	workspace := u.Query().Get("workspace")
	if workspace == "" {
		workspace = constants.DefaultWorkspace
	}
	return &Config{
		URL:       *u,
		Workspace: workspace,
		Logger:    logger.Default(),
		Timeout:   constants.DefaultWSTimeout,
	}
}

// ConfigFromEnv reads JACKALOPE_URL and JACKALOPE_WORKSPACE. The URL defaults to an
// in-memory repository.
func ConfigFromEnv() (*Config, error) {
	u, err := url.Parse(envOr("JACKALOPE_URL", constants.MemoryScheme+"://"))
	if err != nil {
		return nil, fmt.Errorf("JACKALOPE_URL: %w", err)
	}
	cfg := NewConfig(u)
	cfg.Workspace = envOr("JACKALOPE_WORKSPACE", cfg.Workspace)
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
