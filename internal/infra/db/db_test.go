package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"storefront/internal/config"
	"storefront/internal/infra/db/migrations"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{
		PostgresHost:     "db",
		PostgresPort:     5433,
		PostgresUser:     "u",
		PostgresPassword: "p",
		PostgresDB:       "shop",
		PostgresSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=shop sslmode=disable", DSN(cfg))

	cfg.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", DSN(cfg))
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	b, err := fs.ReadFile(migrations.FS, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")
}

func TestMigrateSQL(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, MigrateSQL(context.Background(), nil))
	assert.Equal(t, ".", gotDir)

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("no db")
	}
	err := MigrateSQL(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goose up")
}
