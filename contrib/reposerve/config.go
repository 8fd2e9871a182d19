package reposerve

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

// Config holds the options of a repository server.
type Config struct {
	// Address to listen on (e.g., ":8000")
	Listen string
	// HTTP path the websocket endpoint is mounted on
	Path string

	// Backend repository URL: mem://, sqlite:// or file://
	Backend string
	// YAML file with node type definitions to register on startup
	NodeTypes string

	// Log file path; logs go to stderr when empty
	LogFile string
	// Enable debug logging
	Verbose bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Listen:  ":8000",
		Path:    "/rpc",
		Backend: constants.MemoryScheme + "://",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	u, err := url.Parse(c.Backend)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	switch u.Scheme {
	case constants.MemoryScheme, constants.SQLiteScheme, constants.FileScheme:
		return nil
	default:
		return fmt.Errorf("%w: backend scheme %q", constants.ErrUnsupportedURL, u.Scheme)
	}
}
