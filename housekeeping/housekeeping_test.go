package housekeeping

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeStaleNatives_RemovesOldDirectoriesOnly(t *testing.T) {
	versionsDir := t.TempDir()
	versionDir := filepath.Join(versionsDir, "1.20")
	require.NoError(t, os.MkdirAll(versionDir, 0o755))

	stale := filepath.Join(versionDir, "1.20-natives-1000")
	fresh := filepath.Join(versionDir, "1.20-natives-2000")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.MkdirAll(fresh, 0o755))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, PurgeStaleNatives(versionsDir))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale natives dir should have been removed")

	_, err = os.Stat(fresh)
	assert.NoError(t, err, "fresh natives dir should still exist")
}

func TestPurgeStaleNatives_IgnoresUnrelatedFiles(t *testing.T) {
	versionsDir := t.TempDir()
	versionDir := filepath.Join(versionsDir, "1.20")
	require.NoError(t, os.MkdirAll(versionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, "1.20.json"), []byte("{}"), 0o644))

	require.NoError(t, PurgeStaleNatives(versionsDir))

	_, err := os.Stat(filepath.Join(versionDir, "1.20.json"))
	assert.NoError(t, err)
}

func TestPurgeStaleNatives_MissingVersionsDirIsNotAnError(t *testing.T) {
	assert.NoError(t, PurgeStaleNatives(filepath.Join(t.TempDir(), "does-not-exist")))
}
