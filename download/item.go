// Package download implements a bounded-concurrency download engine and
// its three concrete downloadable variants: pre-hashed, remote-checksummed,
// and plain.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quasarmc/launchercore/hash"
)

// HTTPDoer is the minimal capability this package depends on, satisfied by
// retryablehttp.Client.StandardClient() in production and by fakes in tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Downloadable is a single queueable unit of work for the download engine.
type Downloadable struct {
	targetPath    string
	sourceURL     string
	forceDownload bool
	expectedSHA1  hash.SHA1
	sha1Known     bool
	remoteSHA1URL string // set only for the remote-checksummed variant
	expectedSize  int64
}

// NewPreHashed builds a downloadable whose SHA-1 is already known (spec
// §4.E variant 1): libraries, the main jar, and asset objects all use this.
func NewPreHashed(targetPath, sourceURL string, expected hash.SHA1, size int64, force bool) Downloadable {
	return Downloadable{
		targetPath:    targetPath,
		sourceURL:     sourceURL,
		forceDownload: force,
		expectedSHA1:  expected,
		sha1Known:     true,
		expectedSize:  size,
	}
}

// NewRemoteChecksummed builds a downloadable whose expected digest is
// fetched from "<url>.sha1" before the main transfer.
func NewRemoteChecksummed(targetPath, sourceURL string, force bool) Downloadable {
	return Downloadable{
		targetPath:    targetPath,
		sourceURL:     sourceURL,
		forceDownload: force,
		remoteSHA1URL: sourceURL + ".sha1",
	}
}

// NewPlain builds a downloadable with no checksum: success is defined by
// HTTP 200 and a complete body.
func NewPlain(targetPath, sourceURL string, force bool) Downloadable {
	return Downloadable{targetPath: targetPath, sourceURL: sourceURL, forceDownload: force}
}

// TargetPath is the local destination path.
func (d Downloadable) TargetPath() string { return d.targetPath }

// SourceURL is the remote URL to fetch.
func (d Downloadable) SourceURL() string { return d.sourceURL }

// ForceDownload reports whether the item must be (re)fetched even if a
// matching copy already exists locally.
func (d Downloadable) ForceDownload() bool { return d.forceDownload }

// ExpectedSize is the anticipated byte size, used only for progress totals.
func (d Downloadable) ExpectedSize() int64 { return d.expectedSize }

// resolveExpectedHash returns the digest to verify downloaded bytes
// against, performing the remote-checksummed variant's auxiliary request
// if needed. known is false only for the plain variant.
func (d Downloadable) resolveExpectedHash(ctx context.Context, client HTTPDoer) (hash.SHA1, bool, error) {
	if d.sha1Known {
		return d.expectedSHA1, true, nil
	}
	if d.remoteSHA1URL == "" {
		return hash.SHA1{}, false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.remoteSHA1URL, nil)
	if err != nil {
		return hash.SHA1{}, false, fmt.Errorf("building sha1 request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return hash.SHA1{}, false, fmt.Errorf("%w: %v", errNetwork(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hash.SHA1{}, false, newStatusError(d.remoteSHA1URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return hash.SHA1{}, false, fmt.Errorf("%w: reading sha1: %v", errNetwork(), err)
	}

	sum, err := hash.Parse(strings.TrimSpace(string(body)))
	if err != nil {
		return hash.SHA1{}, false, fmt.Errorf("invalid remote sha1 for %s: %w", d.sourceURL, err)
	}
	return sum, true, nil
}
