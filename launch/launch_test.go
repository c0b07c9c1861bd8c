package launch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quasarmc/launchercore/manifest"
	"github.com/quasarmc/launchercore/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedMatcher struct{ env rules.Environment }

func (m fixedMatcher) HasFeature(string, bool) bool { return false }
func (m fixedMatcher) CurrentOS() rules.Environment { return m.env }

func TestOfflineAuthentication_Defaults(t *testing.T) {
	auth := OfflineAuthentication{}
	assert.Equal(t, "Player", auth.PlayerName())
	assert.Equal(t, "00000000-0000-0000-0000-000000000000", auth.UUID())
	assert.Equal(t, "legacy", auth.UserType())
}

func TestBuildCommandLine_LegacyArguments(t *testing.T) {
	local := manifest.LocalVersion{
		ID:                 "1.7.10",
		MainClass:          "net.minecraft.client.main.Main",
		MinecraftArguments: "--username ${auth_player_name} --uuid ${auth_uuid}",
	}
	opts := Options{GameDir: "/game", LauncherName: "launchercore", LauncherVersion: "0.1.0"}
	asm := NewAssembler(opts, OfflineAuthentication{Name: "Steve"})

	matcher := fixedMatcher{env: rules.Environment{OS: rules.OSLinux, Arch: "64"}}
	argv, err := asm.BuildCommandLine(local, matcher, "/game/natives", "/game/classpath.jar", nil)
	require.NoError(t, err)

	joined := strings.Join(argv, " ")
	assert.Contains(t, joined, "net.minecraft.client.main.Main")
	assert.Contains(t, joined, "--username Steve")
	assert.Contains(t, joined, "--uuid 00000000-0000-0000-0000-000000000000")
}

func TestBuildCommandLine_ExplicitJVMArgsOverrideDefaults(t *testing.T) {
	local := manifest.LocalVersion{ID: "1.20", MainClass: "net.minecraft.client.main.Main"}
	opts := Options{GameDir: "/game", ExplicitJVMArgs: []string{"-Xmx8G"}}
	asm := NewAssembler(opts, OfflineAuthentication{})

	matcher := fixedMatcher{env: rules.Environment{OS: rules.OSLinux, Arch: "64"}}
	argv, err := asm.BuildCommandLine(local, matcher, "/game/natives", "/game/cp.jar", nil)
	require.NoError(t, err)

	assert.Equal(t, "-Xmx8G", argv[0])
	assert.NotContains(t, argv, "-XX:+UseG1GC")
}

func TestBuildCommandLine_ModernArgumentsSubstituted(t *testing.T) {
	local := manifest.LocalVersion{
		ID:        "1.20",
		MainClass: "net.minecraft.client.main.Main",
		Arguments: &manifest.Arguments{
			Game: []manifest.ArgumentEntry{{Values: []string{"--username", "${auth_player_name}"}}},
			JVM:  []manifest.ArgumentEntry{{Values: []string{"-Djava.library.path=${natives_directory}"}}},
		},
	}
	opts := Options{GameDir: "/game"}
	asm := NewAssembler(opts, OfflineAuthentication{Name: "Alex"})

	matcher := fixedMatcher{env: rules.Environment{OS: rules.OSLinux, Arch: "64"}}
	argv, err := asm.BuildCommandLine(local, matcher, "/game/natives", "/game/cp.jar", nil)
	require.NoError(t, err)

	joined := strings.Join(argv, " ")
	assert.Contains(t, joined, "-Djava.library.path=/game/natives")
	assert.Contains(t, joined, "--username Alex")
}

func TestRedact_ReplacesAccessToken(t *testing.T) {
	argv := []string{"--accessToken", "super-secret-token"}
	redacted := Redact(argv, "super-secret-token")
	assert.Equal(t, []string{"--accessToken", "?????"}, redacted)
}

func TestRedact_NoTokenIsNoop(t *testing.T) {
	argv := []string{"--foo", "bar"}
	assert.Equal(t, argv, Redact(argv, ""))
}

func TestBuildClasspath_MissingLibraryFails(t *testing.T) {
	gameDir := t.TempDir()
	local := manifest.LocalVersion{
		ID:        "1.20",
		Libraries: []manifest.Library{{Name: "com.google.guava:guava:31.0"}},
	}
	matcher := fixedMatcher{env: rules.Environment{OS: rules.OSLinux, Arch: "64"}}

	_, err := BuildClasspath(gameDir, local, matcher)
	assert.Error(t, err)
}

func TestBuildClasspath_JoinsPresentLibrariesAndMainJar(t *testing.T) {
	gameDir := t.TempDir()
	local := manifest.LocalVersion{
		ID:        "1.20",
		Libraries: []manifest.Library{{Name: "com.google.guava:guava:31.0"}},
	}

	libPath := filepath.Join(gameDir, "libraries", "com", "google", "guava", "guava", "31.0", "guava-31.0.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(libPath), 0o755))
	require.NoError(t, os.WriteFile(libPath, []byte("jar"), 0o644))

	jarPath := filepath.Join(gameDir, "versions", "1.20", "1.20.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(jarPath), 0o755))
	require.NoError(t, os.WriteFile(jarPath, []byte("jar"), 0o644))

	matcher := fixedMatcher{env: rules.Environment{OS: rules.OSLinux, Arch: "64"}}
	cp, err := BuildClasspath(gameDir, local, matcher)
	require.NoError(t, err)
	assert.Contains(t, cp, libPath)
	assert.Contains(t, cp, jarPath)
}

func TestExecSpawner_SpawnAndWait(t *testing.T) {
	spawner := ExecSpawner{}
	proc, err := spawner.Spawn(context.Background(), "true", nil, t.TempDir())
	require.NoError(t, err)

	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}
