package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/config"
)

func TestServeAddr(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Config
		flags []string
		want  string
	}{
		{"config default", config.Config{ServerHost: "127.0.0.1", ServerPort: 8090}, nil, "127.0.0.1:8090"},
		{"empty host stays on loopback", config.Config{ServerPort: 8090}, nil, "127.0.0.1:8090"},
		{"port flag", config.Config{ServerHost: "127.0.0.1", ServerPort: 8090}, []string{"--port", "9000"}, "127.0.0.1:9000"},
		{"ipv6 host", config.Config{ServerHost: "::1", ServerPort: 8090}, nil, "[::1]:8090"},
		{"explicit wildcard", config.Config{ServerHost: "127.0.0.1", ServerPort: 8090}, []string{"--host", "0.0.0.0"}, "0.0.0.0:8090"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newServeCommand(&RootOptions{})
			require.NoError(t, cmd.ParseFlags(tt.flags))
			assert.Equal(t, tt.want, serveAddr(cmd, &tt.cfg))
		})
	}
}
