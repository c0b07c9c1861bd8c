package natives

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/quasarmc/launchercore/manifest"
	"github.com/quasarmc/launchercore/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestJar(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

type alwaysMatcher struct{ env rules.Environment }

func (m alwaysMatcher) HasFeature(string, bool) bool { return false }
func (m alwaysMatcher) CurrentOS() rules.Environment { return m.env }

func TestExtractAll_UnpacksRelevantLibraryExcludingPrefixes(t *testing.T) {
	gameDir := t.TempDir()
	env := rules.Environment{OS: rules.OSLinux, Arch: "64"}

	jarPath := filepath.Join(gameDir, "libraries", "org", "lwjgl", "lwjgl", "3.3.1", "lwjgl-3.3.1-natives-linux.jar")
	writeTestJar(t, jarPath, map[string]string{
		"liblwjgl.so":        "native bytes",
		"META-INF/MANIFEST.MF": "exclude me",
	})

	nativesDir := filepath.Join(t.TempDir(), "natives")
	extractor := NewExtractor(gameDir, env)

	lib := manifest.Library{
		Name:    "org.lwjgl:lwjgl:3.3.1",
		Natives: map[string]string{"linux": "natives-linux"},
		Extract: &manifest.ExtractRules{Exclude: []string{"META-INF/"}},
	}

	err := extractor.ExtractAll([]manifest.Library{lib}, alwaysMatcher{env: env}, nativesDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(nativesDir, "liblwjgl.so"))
	require.NoError(t, err)
	assert.Equal(t, "native bytes", string(data))

	_, err = os.Stat(filepath.Join(nativesDir, "META-INF", "MANIFEST.MF"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractAll_SkipsLibrariesWithoutNatives(t *testing.T) {
	gameDir := t.TempDir()
	env := rules.Environment{OS: rules.OSLinux, Arch: "64"}
	nativesDir := filepath.Join(t.TempDir(), "natives")

	lib := manifest.Library{Name: "com.google.guava:guava:31.0"}
	extractor := NewExtractor(gameDir, env)

	err := extractor.ExtractAll([]manifest.Library{lib}, alwaysMatcher{env: env}, nativesDir)
	require.NoError(t, err)

	entries, _ := os.ReadDir(nativesDir)
	assert.Empty(t, entries)
}

func TestExtractAll_MissingJarIsWarningNotFatal(t *testing.T) {
	gameDir := t.TempDir()
	env := rules.Environment{OS: rules.OSLinux, Arch: "64"}
	nativesDir := filepath.Join(t.TempDir(), "natives")

	lib := manifest.Library{
		Name:    "org.lwjgl:lwjgl:3.3.1",
		Natives: map[string]string{"linux": "natives-linux"},
	}
	extractor := NewExtractor(gameDir, env)

	err := extractor.ExtractAll([]manifest.Library{lib}, alwaysMatcher{env: env}, nativesDir)
	assert.Error(t, err) // aggregated warning, but ExtractAll itself should not panic
}

func TestExtractAll_IrrelevantLibrarySkipped(t *testing.T) {
	gameDir := t.TempDir()
	env := rules.Environment{OS: rules.OSLinux, Arch: "64"}
	nativesDir := filepath.Join(t.TempDir(), "natives")

	lib := manifest.Library{
		Name:    "org.lwjgl:lwjgl:3.3.1",
		Natives: map[string]string{"windows": "natives-windows"},
		Rules: []manifest.Rule{
			{Action: rules.Allow, OS: &manifest.RuleOS{Name: "windows"}},
		},
	}
	extractor := NewExtractor(gameDir, env)

	err := extractor.ExtractAll([]manifest.Library{lib}, alwaysMatcher{env: env}, nativesDir)
	require.NoError(t, err)

	entries, _ := os.ReadDir(nativesDir)
	assert.Empty(t, entries)
}
