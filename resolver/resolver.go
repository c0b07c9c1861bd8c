// Package resolver fetches Mojang's version manifest index, installs and
// caches per-version manifests on disk, and flattens inheritsFrom chains
// into a single merged manifest.LocalVersion.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/hash"
	"github.com/quasarmc/launchercore/manifest"
)

// IndexURL is Mojang's well-known version manifest endpoint.
const IndexURL = "https://launchermeta.mojang.com/mc/game/version_manifest_v2.json"

// HTTPDoer is the minimal capability this package depends on.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Manager resolves and caches version manifests under a game directory's
// versions/ subtree. It is safe for concurrent use.
type Manager struct {
	client   HTTPDoer
	gameDir  string
	indexURL string

	mu    sync.RWMutex
	index *manifest.Index
}

// NewManager builds a Manager rooted at gameDir, fetching the manifest
// index from IndexURL.
func NewManager(client HTTPDoer, gameDir string) *Manager {
	return &Manager{client: client, gameDir: gameDir, indexURL: IndexURL}
}

// versionsDir is the versions/ subtree of the game directory.
func (m *Manager) versionsDir() string {
	return filepath.Join(m.gameDir, "versions")
}

func (m *Manager) versionDir(id string) string {
	return filepath.Join(m.versionsDir(), id)
}

func (m *Manager) versionJSONPath(id string) string {
	return filepath.Join(m.versionDir(id), id+".json")
}

// Refresh downloads and parses the manifest index. Failures are fatal:
// without the index neither installVersion nor isUpToDate can proceed.
func (m *Manager) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.indexURL, nil)
	if err != nil {
		return fmt.Errorf("building manifest index request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching manifest index: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching manifest index: unexpected status %d", resp.StatusCode)
	}

	var idx manifest.Index
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return fmt.Errorf("parsing manifest index: %w", err)
	}

	m.mu.Lock()
	m.index = &idx
	m.mu.Unlock()
	return nil
}

// GetLocalVersion returns the cached resolved manifest for id from disk,
// or nil if no such cache file exists.
func (m *Manager) GetLocalVersion(id string) (*manifest.LocalVersion, error) {
	data, err := os.ReadFile(m.versionJSONPath(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached version %s: %w", id, err)
	}

	var local manifest.LocalVersion
	if err := json.Unmarshal(data, &local); err != nil {
		return nil, fmt.Errorf("parsing cached version %s: %w", id, err)
	}
	return &local, nil
}

// InstallVersion locates id in the manifest index, downloads and
// SHA-1-verifies its per-version JSON document, stores it at
// versions/<id>/<id>.json, and returns the parsed result.
func (m *Manager) InstallVersion(ctx context.Context, id string) (*manifest.LocalVersion, error) {
	m.mu.RLock()
	idx := m.index
	m.mu.RUnlock()
	if idx == nil {
		return nil, fmt.Errorf("manifest index not loaded: call Refresh first")
	}

	remote := idx.Find(id)
	if remote == nil {
		return nil, &errs.ManifestNotFoundError{ID: id}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building version request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching version %s: %v", errs.ErrNetwork, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching version %s: unexpected status %d", id, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading version %s: %v", errs.ErrNetwork, id, err)
	}

	actual := hash.FromBytes(body)
	if !actual.Equal(remote.SHA1) {
		return nil, fmt.Errorf("%w: version %s expected %s, got %s", errs.ErrChecksumMismatch, id, remote.SHA1, actual)
	}

	if err := os.MkdirAll(m.versionDir(id), 0o755); err != nil {
		return nil, fmt.Errorf("creating version directory for %s: %w", id, err)
	}
	if err := os.WriteFile(m.versionJSONPath(id), body, 0o644); err != nil {
		return nil, fmt.Errorf("caching version %s: %w", id, err)
	}

	if idx.OlderThanLatestRelease(id) {
		log.Info().Str("version", id).Str("latest", idx.Latest.Release).
			Msg("installing a release older than the current latest")
	}

	var local manifest.LocalVersion
	if err := json.Unmarshal(body, &local); err != nil {
		return nil, fmt.Errorf("parsing version %s: %w", id, err)
	}
	return &local, nil
}

// IsUpToDate compares the cached local version's SHA-1 against the index
// entry. A version absent from the index (a custom, hand-installed
// version) is always treated as up to date.
func (m *Manager) IsUpToDate(local *manifest.LocalVersion) bool {
	m.mu.RLock()
	idx := m.index
	m.mu.RUnlock()
	if idx == nil {
		return true
	}

	remote := idx.Find(local.ID)
	if remote == nil {
		return true
	}

	data, err := os.ReadFile(m.versionJSONPath(local.ID))
	if err != nil {
		return false
	}
	return hash.FromBytes(data).Equal(remote.SHA1)
}

// Resolve flattens local's inheritsFrom chain into a single merged
// manifest.LocalVersion. visited guards against cycles; pass an empty map
// on the initial call.
func (m *Manager) Resolve(ctx context.Context, local manifest.LocalVersion, visited map[string]bool) (manifest.LocalVersion, error) {
	if local.InheritsFrom == "" {
		return local, nil
	}

	if visited == nil {
		visited = make(map[string]bool)
	}
	visited[local.ID] = true

	if visited[local.InheritsFrom] {
		path := make([]string, 0, len(visited))
		for id := range visited {
			path = append(path, id)
		}
		return manifest.LocalVersion{}, &errs.InheritanceCycleError{Path: path}
	}

	parent, err := m.GetLocalVersion(local.InheritsFrom)
	if err != nil {
		return manifest.LocalVersion{}, err
	}
	if parent == nil {
		parent, err = m.InstallVersion(ctx, local.InheritsFrom)
		if err != nil {
			return manifest.LocalVersion{}, fmt.Errorf("resolving parent %s: %w", local.InheritsFrom, err)
		}
	}

	resolvedParent, err := m.Resolve(ctx, *parent, visited)
	if err != nil {
		return manifest.LocalVersion{}, err
	}

	return manifest.Merge(resolvedParent, local), nil
}
