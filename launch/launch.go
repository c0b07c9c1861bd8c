// Package launch assembles the JVM/game command line and spawns the
// external Minecraft process. Authentication and process spawning are
// injected capabilities; this package never talks to an account service
// directly.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/quasarmc/launchercore/args"
	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/manifest"
	"github.com/quasarmc/launchercore/rules"
)

// defaultJREArguments are the JVM flags used when the caller supplies none.
var defaultJREArguments = []string{
	"-Xmx2G",
	"-XX:+UnlockExperimentalVMOptions",
	"-XX:+UseG1GC",
	"-XX:G1NewSizePercent=20",
	"-XX:G1ReservePercent=20",
	"-XX:MaxGCPauseMillis=50",
	"-XX:G1HeapRegionSize=32M",
}

// Authentication supplies the identity substitution values a launch needs.
// A real account/auth flow lives outside this module; only the values it
// produces cross this boundary.
type Authentication interface {
	AccessToken() string
	AuthSession() string
	PlayerName() string
	UUID() string
	UserType() string
	// ExtraSubstitutions supplies additional placeholder values (e.g.
	// clientid, auth_xuid) an implementation may not always have.
	ExtraSubstitutions() map[string]string
}

// OfflineAuthentication is the only concrete Authentication this module
// ships: a deterministic offline identity (zero UUID, "legacy" user type).
type OfflineAuthentication struct {
	Name string
}

func (o OfflineAuthentication) AccessToken() string { return "0" }
func (o OfflineAuthentication) AuthSession() string { return "0" }
func (o OfflineAuthentication) PlayerName() string {
	if o.Name != "" {
		return o.Name
	}
	return "Player"
}
func (o OfflineAuthentication) UUID() string     { return "00000000-0000-0000-0000-000000000000" }
func (o OfflineAuthentication) UserType() string { return "legacy" }
func (o OfflineAuthentication) ExtraSubstitutions() map[string]string {
	return nil
}

// Process is a handle to a spawned external process.
type Process interface {
	Wait() (exitCode int, err error)
}

// ProcessSpawner starts the external JVM process. The default
// implementation wraps os/exec.CommandContext.
type ProcessSpawner interface {
	Spawn(ctx context.Context, javaPath string, args []string, dir string) (Process, error)
}

// ExecSpawner is the default ProcessSpawner, wrapping
// exec.CommandContext/cmd.Start/cmd.Wait to run the JVM as a foreground
// child process.
type ExecSpawner struct{}

type execProcess struct{ cmd *exec.Cmd }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Spawn implements ProcessSpawner.
func (ExecSpawner) Spawn(ctx context.Context, javaPath string, argv []string, dir string) (Process, error) {
	cmd := exec.CommandContext(ctx, javaPath, argv...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, &errs.SpawnFailedError{Err: err}
	}
	return &execProcess{cmd: cmd}, nil
}

// Options configures a single launch assembly.
type Options struct {
	GameDir         string
	JavaPath        string
	LauncherName    string
	LauncherVersion string
	Resolution      *Resolution
	ExplicitJVMArgs []string
	ProxyHost       string
	ProxyPort       int
	ProxyUser       string
	ProxyPass       string
	IsDemoUser      bool
	HasCustomRes    bool
}

// Resolution is an explicit window size.
type Resolution struct {
	Width, Height int
}

// demoFeatureMatcher is a minimal FeatureMatcher that answers only the two
// feature keys the legacy argument branch checks, deferring everything
// else (OS/arch gating) to the underlying environment-aware matcher.
type demoFeatureMatcher struct {
	rules.FeatureMatcher
	demo, customRes bool
}

func (m demoFeatureMatcher) HasFeature(key string, expected bool) bool {
	switch key {
	case "is_demo_user":
		return m.demo == expected
	case "has_custom_resolution":
		return m.customRes == expected
	default:
		return m.FeatureMatcher.HasFeature(key, expected)
	}
}

// Assembler builds a launch command line for a resolved version.
type Assembler struct {
	opts Options
	auth Authentication
}

// NewAssembler builds an Assembler for opts/auth.
func NewAssembler(opts Options, auth Authentication) *Assembler {
	return &Assembler{opts: opts, auth: auth}
}

// BuildCommandLine assembles the full JVM + game argument list,
// substituting placeholders via assetPaths (absolute object paths keyed
// by logical asset name, from the asset manager) and the resolved
// version document.
func (a *Assembler) BuildCommandLine(local manifest.LocalVersion, matcher rules.FeatureMatcher, nativesDir, classpath string, assetPaths map[string]string) ([]string, error) {
	values := a.substitutionMap(local, nativesDir, classpath, assetPaths)

	var argv []string

	if len(a.opts.ExplicitJVMArgs) > 0 {
		argv = append(argv, a.opts.ExplicitJVMArgs...)
	} else {
		argv = append(argv, defaultJREArguments...)
	}

	featureMatcher := demoFeatureMatcher{FeatureMatcher: matcher, demo: a.opts.IsDemoUser, customRes: a.opts.HasCustomRes}

	if local.IsModernArguments() {
		argv = append(argv, args.SubstituteAll(manifest.ExpandAll(local.Arguments.JVM, featureMatcher), values)...)
	} else {
		if rules.HostOS() == rules.OSWindows {
			argv = append(argv, "-XX:HeapDumpPath=MojangTricksIntelDriversForPerformance_javaw.exe_minecraft.exe.heapdump")
			if rules.IsWindows10() {
				argv = append(argv, "-Dos.name=Windows 10", "-Dos.version=10.0")
			}
		}
		if rules.HostOS() == rules.OSOSX {
			argv = append(argv, args.Substitute("-Xdock:icon=${asset=icons/minecraft.icns}", values), "-Xdock:name=Minecraft")
		}
		argv = append(argv,
			args.Substitute("-Djava.library.path=${natives_directory}", values),
			args.Substitute("-Dminecraft.launcher.brand=${launcher_name}", values),
			args.Substitute("-Dminecraft.launcher.version=${launcher_version}", values),
			args.Substitute("-Dminecraft.client.jar=${primary_jar}", values),
			"-cp", args.Substitute("${classpath}", values),
		)
	}

	argv = append(argv, local.MainClass)

	if local.IsModernArguments() {
		argv = append(argv, args.SubstituteAll(manifest.ExpandAll(local.Arguments.Game, featureMatcher), values)...)
	} else if local.MinecraftArguments != "" {
		for _, token := range strings.Split(local.MinecraftArguments, " ") {
			argv = append(argv, args.Substitute(token, values))
		}
		if featureMatcher.HasFeature("is_demo_user", true) {
			argv = append(argv, "--demo")
		}
		if featureMatcher.HasFeature("has_custom_resolution", true) {
			argv = append(argv, "--width", values["resolution_width"], "--height", values["resolution_height"])
		}
	}

	if a.opts.ProxyHost != "" {
		argv = append(argv, "--proxyHost", a.opts.ProxyHost, "--proxyPort", strconv.Itoa(a.opts.ProxyPort))
		if a.opts.ProxyUser != "" {
			argv = append(argv, "--proxyUser", a.opts.ProxyUser)
		}
		if a.opts.ProxyPass != "" {
			argv = append(argv, "--proxyPass", a.opts.ProxyPass)
		}
	}

	return argv, nil
}

func (a *Assembler) substitutionMap(local manifest.LocalVersion, nativesDir, classpath string, assetPaths map[string]string) map[string]string {
	sep := ":"
	if rules.HostOS() == rules.OSWindows {
		sep = ";"
	}

	width, height := "", ""
	if a.opts.Resolution != nil {
		width = strconv.Itoa(a.opts.Resolution.Width)
		height = strconv.Itoa(a.opts.Resolution.Height)
	}

	assetsIndexName := ""
	if local.AssetIndex != nil {
		assetsIndexName = local.AssetIndex.ID
	}

	values := map[string]string{
		"auth_access_token":   a.auth.AccessToken(),
		"auth_session":        a.auth.AuthSession(),
		"auth_player_name":    a.auth.PlayerName(),
		"auth_uuid":           a.auth.UUID(),
		"user_type":           a.auth.UserType(),
		"profile_name":        a.auth.PlayerName(),
		"version_name":        local.ID,
		"version_type":        string(local.Type),
		"game_directory":      a.opts.GameDir,
		"game_assets":         filepath.Join(a.opts.GameDir, "assets"),
		"assets_root":         filepath.Join(a.opts.GameDir, "assets"),
		"assets_index_name":   assetsIndexName,
		"resolution_width":    width,
		"resolution_height":   height,
		"language":            "en-us",
		"launcher_name":       a.opts.LauncherName,
		"launcher_version":    a.opts.LauncherVersion,
		"natives_directory":   nativesDir,
		"classpath":           classpath,
		"classpath_separator": sep,
		"primary_jar":         filepath.Join(a.opts.GameDir, "versions", local.JarID(), local.JarID()+".jar"),
		"library_directory":   filepath.Join(a.opts.GameDir, "libraries"),
		"clientid":            "",
		"auth_xuid":           "",
	}

	for key, value := range a.auth.ExtraSubstitutions() {
		values[key] = value
	}
	for logicalName, path := range assetPaths {
		values["asset="+logicalName] = path
	}

	return values
}

// BuildClasspath computes the classpath for local: every relevant
// non-native library's artifact path under gameDir/libraries, plus the
// main jar, joined by the OS path-list separator. A missing file yields a
// ClasspathMissingError before the process is ever spawned.
func BuildClasspath(gameDir string, local manifest.LocalVersion, matcher rules.FeatureMatcher) (string, error) {
	var paths []string

	for _, lib := range local.Libraries {
		if !lib.Relevant(matcher) {
			continue
		}
		if _, ok := lib.NativeClassifier(rules.HostOS()); ok {
			continue // natives ship separately, never on the classpath
		}

		coord, err := lib.Coordinate()
		if err != nil {
			return "", fmt.Errorf("parsing library coordinate %s: %w", lib.Name, err)
		}
		path := filepath.Join(gameDir, "libraries", filepath.FromSlash(coord.Path()))
		if _, err := os.Stat(path); err != nil {
			return "", &errs.ClasspathMissingError{Path: path}
		}
		paths = append(paths, path)
	}

	jarPath := filepath.Join(gameDir, "versions", local.JarID(), local.JarID()+".jar")
	if _, err := os.Stat(jarPath); err != nil {
		return "", &errs.ClasspathMissingError{Path: jarPath}
	}
	paths = append(paths, jarPath)

	sep := ":"
	if rules.HostOS() == rules.OSWindows {
		sep = ";"
	}
	return strings.Join(paths, sep), nil
}

// Redact replaces every occurrence of the access token in argv with
// "?????" before logging.
func Redact(argv []string, accessToken string) []string {
	if accessToken == "" {
		return argv
	}
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = strings.ReplaceAll(a, accessToken, "?????")
	}
	return out
}
