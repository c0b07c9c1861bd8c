// Package assets downloads a version's asset index and materializes the
// content-addressed object store into the virtual or resource-mapped tree
// legacy and modern clients expect.
package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quasarmc/launchercore/download"
	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/hash"
	"github.com/quasarmc/launchercore/manifest"
	"github.com/quasarmc/launchercore/progress"
)

// ObjectsBaseURL is Mojang's content-addressed asset object store.
const ObjectsBaseURL = "https://resources.download.minecraft.net"

// Manager downloads and reconstructs the asset tree for a single version.
type Manager struct {
	client         download.HTTPDoer
	gameDir        string
	objectsBaseURL string
}

// NewManager builds a Manager rooted at gameDir (the directory containing
// the assets/ subtree).
func NewManager(client download.HTTPDoer, gameDir string) *Manager {
	return &Manager{client: client, gameDir: gameDir, objectsBaseURL: ObjectsBaseURL}
}

// WithObjectsBaseURL overrides the content-addressed object store base URL
// (e.g. a mirror, or a test server) instead of Mojang's default.
func (m *Manager) WithObjectsBaseURL(base string) *Manager {
	m.objectsBaseURL = base
	return m
}

func (m *Manager) assetsDir() string           { return filepath.Join(m.gameDir, "assets") }
func (m *Manager) indexesDir() string          { return filepath.Join(m.assetsDir(), "indexes") }
func (m *Manager) objectsDir() string          { return filepath.Join(m.assetsDir(), "objects") }
func (m *Manager) indexPath(id string) string  { return filepath.Join(m.indexesDir(), id+".json") }
func (m *Manager) virtualRoot(id string) string {
	return filepath.Join(m.assetsDir(), "virtual", id)
}

// FetchIndex downloads and SHA-1-verifies the asset index named by ref,
// caching it at assets/indexes/<id>.json.
func (m *Manager) FetchIndex(ctx context.Context, ref manifest.AssetIndexRef) (*manifest.AssetIndex, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building asset index request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching asset index %s: %v", errs.ErrNetwork, ref.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching asset index %s: unexpected status %d", ref.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading asset index %s: %v", errs.ErrNetwork, ref.ID, err)
	}

	if !ref.SHA1.Zero() && !hash.FromBytes(body).Equal(ref.SHA1) {
		return nil, fmt.Errorf("%w: asset index %s", errs.ErrChecksumMismatch, ref.ID)
	}

	if err := os.MkdirAll(m.indexesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating asset indexes directory: %w", err)
	}
	if err := os.WriteFile(m.indexPath(ref.ID), body, 0o644); err != nil {
		return nil, fmt.Errorf("caching asset index %s: %w", ref.ID, err)
	}

	var idx manifest.AssetIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, fmt.Errorf("parsing asset index %s: %w", ref.ID, err)
	}
	return &idx, nil
}

// DownloadObjects queues every object named by idx as a pre-hashed
// download into assets/objects/<hash[0:2]>/<hash> and runs the job to
// completion.
func (m *Manager) DownloadObjects(ctx context.Context, idx *manifest.AssetIndex, reporter progress.Reporter) (*download.Result, error) {
	job := download.NewJob("Resources", m.client, reporter)
	for _, obj := range idx.Objects {
		target := filepath.Join(m.objectsDir(), filepath.FromSlash(hash.ObjectPath(obj.Hash)))
		url := m.objectsBaseURL + "/" + hash.ObjectPath(obj.Hash)
		job.Add(download.NewPreHashed(target, url, obj.Hash, obj.Size, false))
	}
	return job.Run(ctx)
}

// objectPath returns the on-disk location of a downloaded asset object.
func (m *Manager) objectPath(obj manifest.AssetObject) string {
	return filepath.Join(m.objectsDir(), filepath.FromSlash(hash.ObjectPath(obj.Hash)))
}

// Reconstruct materializes the logical asset tree for idx once every
// object has been downloaded. Legacy indexes (isVirtual) land under
// assets/virtual/<indexID>; resource-mapped indexes land under
// <gameDir>/resources. Modern indexes (neither flag set) need no tree:
// clients address objects directly by hash.
func (m *Manager) Reconstruct(indexID string, idx *manifest.AssetIndex, mapToResources bool) error {
	if !idx.IsVirtual && !idx.MapToResources && !mapToResources {
		return nil
	}

	root := m.virtualRoot(indexID)
	if idx.MapToResources || mapToResources {
		root = filepath.Join(m.gameDir, "resources")
	}

	for logicalName, obj := range idx.Objects {
		dest := filepath.Join(root, filepath.FromSlash(logicalName))
		if rel, err := filepath.Rel(root, dest); err != nil || strings.HasPrefix(rel, "..") {
			return fmt.Errorf("asset %s escapes reconstruction root", logicalName)
		}
		if upToDate(dest, obj.Hash) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating resource directory for %s: %w", logicalName, err)
		}
		if err := copyFile(m.objectPath(obj), dest); err != nil {
			return fmt.Errorf("materializing asset %s: %w", logicalName, err)
		}
	}

	return os.WriteFile(filepath.Join(root, ".lastused"), []byte(time.Now().Format(time.RFC3339)), 0o644)
}

func upToDate(dest string, expected hash.SHA1) bool {
	f, err := os.Open(dest)
	if err != nil {
		return false
	}
	defer f.Close()

	actual, err := hash.FromReader(f)
	if err != nil {
		return false
	}
	return actual.Equal(expected)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
