package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/hash"
	"github.com/quasarmc/launchercore/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveVersionManifest(t *testing.T, versions map[string][]byte) (*httptest.Server, *manifest.Index) {
	t.Helper()

	idx := &manifest.Index{Latest: manifest.Latest{Release: "1.20"}}
	mux := http.NewServeMux()
	for id, body := range versions {
		body := body
		mux.HandleFunc("/"+id+".json", func(w http.ResponseWriter, r *http.Request) {
			w.Write(body)
		})
	}

	server := httptest.NewServer(mux)
	for id, body := range versions {
		idx.Versions = append(idx.Versions, manifest.RemoteVersion{
			ID:   id,
			Type: manifest.Release,
			URL:  server.URL + "/" + id + ".json",
			SHA1: hash.FromBytes(body),
		})
	}
	return server, idx
}

func newManagerWithIndex(t *testing.T, idx *manifest.Index, gameDir string) *Manager {
	t.Helper()
	mgr := NewManager(http.DefaultClient, gameDir)
	mgr.index = idx
	return mgr
}

func TestInstallVersion_DownloadsVerifiesAndCaches(t *testing.T) {
	body, _ := json.Marshal(manifest.LocalVersion{ID: "1.20", MainClass: "net.minecraft.Main"})
	server, idx := serveVersionManifest(t, map[string][]byte{"1.20": body})
	defer server.Close()

	gameDir := t.TempDir()
	mgr := newManagerWithIndex(t, idx, gameDir)

	local, err := mgr.InstallVersion(context.Background(), "1.20")
	require.NoError(t, err)
	assert.Equal(t, "net.minecraft.Main", local.MainClass)

	cached, err := os.ReadFile(filepath.Join(gameDir, "versions", "1.20", "1.20.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(body), string(cached))
}

func TestInstallVersion_UnknownID(t *testing.T) {
	server, idx := serveVersionManifest(t, nil)
	defer server.Close()

	mgr := newManagerWithIndex(t, idx, t.TempDir())
	_, err := mgr.InstallVersion(context.Background(), "nonexistent")

	var notFound *errs.ManifestNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestInstallVersion_ChecksumMismatch(t *testing.T) {
	body, _ := json.Marshal(manifest.LocalVersion{ID: "1.20"})
	server, idx := serveVersionManifest(t, map[string][]byte{"1.20": body})
	defer server.Close()

	idx.Versions[0].SHA1 = hash.SHA1{} // wrong digest

	mgr := newManagerWithIndex(t, idx, t.TempDir())
	_, err := mgr.InstallVersion(context.Background(), "1.20")
	assert.ErrorIs(t, err, errs.ErrChecksumMismatch)
}

func TestGetLocalVersion_AbsentReturnsNil(t *testing.T) {
	mgr := NewManager(http.DefaultClient, t.TempDir())
	local, err := mgr.GetLocalVersion("missing")
	require.NoError(t, err)
	assert.Nil(t, local)
}

func TestIsUpToDate_UnknownIndexEntryIsUpToDate(t *testing.T) {
	_, idx := serveVersionManifest(t, nil)
	mgr := newManagerWithIndex(t, idx, t.TempDir())

	assert.True(t, mgr.IsUpToDate(&manifest.LocalVersion{ID: "custom-modpack"}))
}

func TestIsUpToDate_StaleCacheMismatchesIndex(t *testing.T) {
	body, _ := json.Marshal(manifest.LocalVersion{ID: "1.20"})
	server, idx := serveVersionManifest(t, map[string][]byte{"1.20": body})
	defer server.Close()

	gameDir := t.TempDir()
	mgr := newManagerWithIndex(t, idx, gameDir)

	versionDir := filepath.Join(gameDir, "versions", "1.20")
	require.NoError(t, os.MkdirAll(versionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, "1.20.json"), []byte("stale"), 0o644))

	assert.False(t, mgr.IsUpToDate(&manifest.LocalVersion{ID: "1.20"}))
}

func TestResolve_NoInheritanceReturnsUnchanged(t *testing.T) {
	mgr := NewManager(http.DefaultClient, t.TempDir())
	local := manifest.LocalVersion{ID: "1.20", MainClass: "net.minecraft.Main"}

	resolved, err := mgr.Resolve(context.Background(), local, nil)
	require.NoError(t, err)
	assert.Equal(t, local, resolved)
}

func TestResolve_MergesParentChain(t *testing.T) {
	gameDir := t.TempDir()
	mgr := NewManager(http.DefaultClient, gameDir)

	parent := manifest.LocalVersion{
		ID:        "1.20",
		MainClass: "net.minecraft.Main",
		Libraries: []manifest.Library{{Name: "com.google.guava:guava:31.0"}},
	}
	parentBody, _ := json.Marshal(parent)
	require.NoError(t, os.MkdirAll(filepath.Join(gameDir, "versions", "1.20"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gameDir, "versions", "1.20", "1.20.json"), parentBody, 0o644))

	child := manifest.LocalVersion{
		ID:           "fabric-loader-1.20",
		InheritsFrom: "1.20",
		Libraries:    []manifest.Library{{Name: "net.fabricmc:fabric-loader:0.15.0"}},
	}

	resolved, err := mgr.Resolve(context.Background(), child, nil)
	require.NoError(t, err)
	assert.Equal(t, "net.minecraft.Main", resolved.MainClass)
	assert.Empty(t, resolved.InheritsFrom)
	require.Len(t, resolved.Libraries, 2)
	assert.Equal(t, "com.google.guava:guava:31.0", resolved.Libraries[0].Name)
	assert.Equal(t, "net.fabricmc:fabric-loader:0.15.0", resolved.Libraries[1].Name)
}

func TestResolve_CycleDetected(t *testing.T) {
	gameDir := t.TempDir()
	mgr := NewManager(http.DefaultClient, gameDir)

	a := manifest.LocalVersion{ID: "a", InheritsFrom: "b"}
	b := manifest.LocalVersion{ID: "b", InheritsFrom: "a"}

	for _, v := range []manifest.LocalVersion{a, b} {
		body, _ := json.Marshal(v)
		dir := filepath.Join(gameDir, "versions", v.ID)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, v.ID+".json"), body, 0o644))
	}

	_, err := mgr.Resolve(context.Background(), a, nil)
	var cycle *errs.InheritanceCycleError
	assert.ErrorAs(t, err, &cycle)
}
