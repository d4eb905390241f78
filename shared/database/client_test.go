package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		want      string
		wantErr   bool
		errString string
	}{
		{
			name: "postgres",
			config: &Config{
				Driver:   DriverPostgres,
				Host:     "localhost",
				Port:     5432,
				User:     "queue",
				Password: "secret",
				Database: "queuectl",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=queue password=secret dbname=queuectl sslmode=disable",
		},
		{
			name:      "sqlite without path",
			config:    &Config{Driver: DriverSQLite},
			wantErr:   true,
			errString: "sqlite path is required",
		},
		{
			name:      "unknown driver",
			config:    &Config{Driver: "oracle"},
			wantErr:   true,
			errString: "unsupported database driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildDSN(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dsn)
		})
	}
}

func TestNewClient_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.db")

	client, err := NewClient(&Config{Driver: DriverSQLite, Path: path}, discardLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, DriverSQLite, client.Driver())
	assert.NoError(t, client.HealthCheck(context.Background()))
	assert.Contains(t, client.Stats(), "MaxOpenConns: 1")
	assert.FileExists(t, path)
}
