package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatitude/agentcore/config"
)

func TestStoragePaths_DefaultsToDataDir(t *testing.T) {
	dbPath, blobRoot := storagePaths(&config.RootConfig{})
	assert.Equal(t, filepath.Join("data", "agentcore.db"), dbPath)
	assert.Equal(t, filepath.Join("data", "blobs"), blobRoot)
}

func TestStoragePaths_HonorsConfiguredRoot(t *testing.T) {
	dbPath, blobRoot := storagePaths(&config.RootConfig{StorageRoot: "/var/lib/agentcore"})
	assert.Equal(t, filepath.Join("/var/lib/agentcore", "agentcore.db"), dbPath)
	assert.Equal(t, filepath.Join("/var/lib/agentcore", "blobs"), blobRoot)
}

func TestOpenStorage_CreatesParentDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "storage")
	db, err := openStorage(&config.RootConfig{StorageRoot: root})
	require.NoError(t, err)
	defer db.Close()

	// the db file itself is only created lazily by sqlite on first
	// write/read, but the parent directory must exist up front.
	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
