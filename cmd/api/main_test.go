package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_InvalidConfigReturnsError(t *testing.T) {
	t.Setenv("STORE", "mysql")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_BuildFailureReturnsError(t *testing.T) {
	t.Setenv("GO_ENV", "dev")
	t.Setenv("STORE", "memory")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("REDIS_ADDR", "")
	// ファイルがある場所にはディレクトリを作れない
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	t.Setenv("UPLOAD_DIR", filepath.Join(blocker, "images"))

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build app (store=memory)")
}
