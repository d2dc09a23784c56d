package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/config"
)

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		tls  bool
		want string
	}{
		{
			name: "tls disabled leaves dsn untouched",
			dsn:  "host=db sslmode=disable",
			tls:  false,
			want: "host=db sslmode=disable",
		},
		{
			name: "replaces existing sslmode",
			dsn:  "host=db sslmode=disable port=5432",
			tls:  true,
			want: "host=db sslmode=require port=5432",
		},
		{
			name: "replaces sslmode regardless of case and spacing",
			dsn:  "host=db SSLMODE = prefer",
			tls:  true,
			want: "host=db sslmode=require",
		},
		{
			name: "appends sslmode when missing",
			dsn:  "host=db port=5432",
			tls:  true,
			want: "host=db port=5432 sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postgresDSN(tt.dsn, tt.tls))
		})
	}
}

func TestNew_SQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{Database: config.DBCfg{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
	}}

	d, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(d))

	for _, table := range []string{"users", "projects", "project_technologies", "team_members", "comments", "password_reset_tokens"} {
		assert.True(t, d.Migrator().HasTable(table), table)
	}
}
