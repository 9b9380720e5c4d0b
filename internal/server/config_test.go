package server_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/livequiz/internal/server"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() server.Config {
		c := server.DefaultConfig()
		c.Auth.Secret = "secret"
		return c
	}

	tests := map[string]struct {
		mutate  func(c *server.Config)
		wantErr []string
	}{
		"defaults with a secret": {
			mutate: func(*server.Config) {},
		},
		"missing secret": {
			mutate:  func(c *server.Config) { c.Auth.Secret = "" },
			wantErr: []string{"auth.secret must be set"},
		},
		"port out of range": {
			mutate:  func(c *server.Config) { c.HTTP.Port = 70000 },
			wantErr: []string{"http.port must be between 1 and 65535: 70000"},
		},
		"shared port": {
			mutate:  func(c *server.Config) { c.GRPC.Port = c.HTTP.Port },
			wantErr: []string{"http.port and grpc.port must differ: 8080"},
		},
		"zero sweep interval": {
			mutate:  func(c *server.Config) { c.Game.SweepInterval = 0 },
			wantErr: []string{"game.sweepInterval must be positive: 0s"},
		},
		"negative durations and sizes": {
			mutate: func(c *server.Config) {
				c.Game.IdleTimeout = -time.Minute
				c.Redis.Archive.TTL = -time.Second
				c.Lobby.MaxPlayers = -1
			},
			wantErr: []string{
				"game.idleTimeout must be positive: -1m0s",
				"redis.archive.ttl must not be negative: -1s",
				"lobby.maxPlayers must not be negative: -1",
			},
		},
		"zero sizes fall back to defaults": {
			mutate: func(c *server.Config) {
				c.Lobby.MaxPlayers = 0
				c.Lobby.CodeLength = 0
				c.Postgres.History.PageSize = 0
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := c.Validate()
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}
