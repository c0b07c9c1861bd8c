// Package housekeeping purges stale per-launch scratch directories left
// behind by the native unpacker.
package housekeeping

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
)

// staleAfter is how long a natives scratch directory may sit unused
// before a cleanup pass removes it.
const staleAfter = time.Hour

// nativesDirPattern matches "<id>-natives-<nanosecond>" directory names.
var nativesDirPattern = regexp.MustCompile(`^.+-natives-\d+$`)

// PurgeStaleNatives walks versionsDir's immediate children, deleting any
// "<id>-natives-*" subdirectory of a version directory whose modification
// time is older than one hour. Deletion failures are aggregated as
// warnings, never returned as a fatal error.
func PurgeStaleNatives(versionsDir string) error {
	now := time.Now()
	var warnings *multierror.Error

	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, versionEntry := range entries {
		if !versionEntry.IsDir() {
			continue
		}
		versionDir := filepath.Join(versionsDir, versionEntry.Name())

		err := godirwalk.Walk(versionDir, &godirwalk.Options{
			Unsorted: true,
			Callback: func(path string, de *godirwalk.Dirent) error {
				if path == versionDir || !de.IsDir() {
					return nil
				}
				if !nativesDirPattern.MatchString(de.Name()) {
					return filepath.SkipDir
				}

				info, statErr := os.Stat(path)
				if statErr != nil {
					warnings = multierror.Append(warnings, statErr)
					return filepath.SkipDir
				}
				if now.Sub(info.ModTime()) <= staleAfter {
					return filepath.SkipDir
				}

				if err := os.RemoveAll(path); err != nil {
					warnings = multierror.Append(warnings, err)
					log.Warn().Err(err).Str("path", path).Msg("failed to remove stale natives directory")
				}
				return filepath.SkipDir
			},
		})
		if err != nil {
			warnings = multierror.Append(warnings, err)
		}
	}

	return warnings.ErrorOrNil()
}
