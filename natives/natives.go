// Package natives extracts per-OS native libraries (zip entries inside a
// library jar) into a version's natives directory, honoring extract.exclude
// path-prefix filters.
package natives

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/manifest"
	"github.com/quasarmc/launchercore/rules"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Extractor unpacks the native libraries relevant to a version into a
// fresh natives directory.
type Extractor struct {
	gameDir string
	env     rules.Environment
}

// NewExtractor builds an Extractor rooted at gameDir for the given
// environment (its OS selects each library's native classifier; ${arch}
// is substituted from rules.HostArch).
func NewExtractor(gameDir string, env rules.Environment) *Extractor {
	return &Extractor{gameDir: gameDir, env: env}
}

// ExtractAll unpacks every relevant library's natives (if any) into
// nativesDir. Per-library failures are aggregated as warnings rather than
// aborting: the next library is still processed.
func (e *Extractor) ExtractAll(libraries []manifest.Library, matcher rules.FeatureMatcher, nativesDir string) error {
	var warnings *multierror.Error

	for _, lib := range libraries {
		if !lib.Relevant(matcher) {
			continue
		}
		tmpl, ok := lib.NativeClassifier(e.env.OS)
		if !ok {
			continue
		}

		if err := e.extractOne(lib, tmpl, nativesDir); err != nil {
			wrapped := &errs.NativeExtractFailedError{Library: lib.Name, Err: err}
			warnings = multierror.Append(warnings, wrapped)
			log.Warn().Err(wrapped).Str("library", lib.Name).Msg("native extraction failed, continuing")
		}
	}

	return warnings.ErrorOrNil()
}

func (e *Extractor) extractOne(lib manifest.Library, classifierTemplate, nativesDir string) error {
	classifier := strings.ReplaceAll(classifierTemplate, "${arch}", rules.HostArch())

	coord, err := lib.Coordinate()
	if err != nil {
		return fmt.Errorf("parsing coordinate: %w", err)
	}
	coord = coord.WithClassifier(classifier)

	jarPath := filepath.Join(e.gameDir, "libraries", filepath.FromSlash(coord.Path()))

	var excludes []string
	if lib.Extract != nil {
		excludes = lib.Extract.Exclude
	}

	return extractZip(jarPath, nativesDir, excludes)
}

// extractZip walks jarPath's zip entries, writing every entry not matched
// by an exclude prefix into destDir. Failing to open the archive at all is
// fatal to the call; a single corrupt/unwritable entry is logged and
// skipped so the rest of the archive still extracts.
func extractZip(jarPath, destDir string, excludes []string) error {
	z := archiver.NewZip()
	return z.Walk(jarPath, func(f archiver.File) error {
		defer f.Close()

		if f.IsDir() {
			return nil
		}

		header, ok := f.Header.(zip.FileHeader)
		if !ok {
			return nil
		}
		name := header.Name

		if excluded(name, excludes) {
			return nil
		}

		if err := writeEntry(destDir, name, f); err != nil {
			log.Warn().Err(err).Str("entry", name).Msg("skipping native entry")
		}
		return nil
	})
}

func excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func writeEntry(destDir, name string, r io.Reader) error {
	dest := filepath.Join(destDir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(destDir, dest); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("entry %s escapes natives directory", name)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", name, err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
