package reposerve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "sqlite backend", modify: func(c *Config) { c.Backend = "sqlite:///var/lib/repo.db" }},
		{name: "file backend", modify: func(c *Config) { c.Backend = "file:///srv/content" }},
		{name: "no listen address", modify: func(c *Config) { c.Listen = "" }, wantErr: "listen address is required"},
		{name: "relative path", modify: func(c *Config) { c.Path = "rpc" }, wantErr: "path must start with /"},
		{name: "websocket backend", modify: func(c *Config) { c.Backend = "ws://localhost:8000/rpc" }, wantErr: "backend scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.modify(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	c := NewConfig()
	c.Backend = "ftp://example.com"
	assert.ErrorIs(t, c.Validate(), constants.ErrUnsupportedURL)
}
