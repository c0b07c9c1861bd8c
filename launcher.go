// Package launchercore orchestrates version resolution, download, native
// extraction, asset reconstruction, argument assembly, and process launch
// into a single pipeline. Every subsystem is otherwise independently
// usable; this package exists only to wire them together with sensible
// defaults.
package launchercore

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/quasarmc/launchercore/assets"
	"github.com/quasarmc/launchercore/config"
	"github.com/quasarmc/launchercore/download"
	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/hash"
	"github.com/quasarmc/launchercore/housekeeping"
	"github.com/quasarmc/launchercore/launch"
	"github.com/quasarmc/launchercore/manifest"
	"github.com/quasarmc/launchercore/natives"
	"github.com/quasarmc/launchercore/progress"
	"github.com/quasarmc/launchercore/resolver"
	"github.com/quasarmc/launchercore/rules"
)

// Launcher ties every subsystem to a single game directory and option
// set. Construct one per launch attempt; it is not meant to be reused
// across unrelated versions.
type Launcher struct {
	opts     config.Options
	client   *http.Client
	resolver *resolver.Manager
	assets   *assets.Manager
	auth     launch.Authentication
	spawner  launch.ProcessSpawner
}

// New builds a Launcher from opts, defaulting the HTTP client to a
// retryablehttp-backed transport and authentication to
// launch.OfflineAuthentication when opts.Authentication is nil.
func New(opts config.Options) *Launcher {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	client := retryClient.StandardClient()

	auth := opts.Authentication
	if auth == nil {
		auth = launch.OfflineAuthentication{}
	}
	if len(opts.SubstitutorOverrides) > 0 {
		auth = overrideAuthentication{Authentication: auth, overrides: opts.SubstitutorOverrides}
	}

	return &Launcher{
		opts:     opts,
		client:   client,
		resolver: resolver.NewManager(client, opts.GameDir),
		assets:   assets.NewManager(client, opts.GameDir),
		auth:     auth,
		spawner:  launch.ExecSpawner{},
	}
}

func (l *Launcher) versionDir(id string) string {
	return filepath.Join(l.opts.GameDir, "versions", id)
}

func (l *Launcher) librariesDir() string {
	return filepath.Join(l.opts.GameDir, "libraries")
}

// Launch runs the full pipeline for the configured version and returns a
// handle to the spawned process once the JVM has started.
func (l *Launcher) Launch(ctx context.Context, reporter progress.Reporter) (launch.Process, error) {
	if reporter == nil {
		reporter = logReporter{}
	}

	reporter.Report(progress.Event{Job: "launch", Status: "refreshing manifest index"})
	if err := l.resolver.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refreshing manifest index: %w", err)
	}

	local, err := l.resolveVersion(ctx)
	if err != nil {
		return nil, err
	}

	matcher := l.featureMatcher()
	if !anyRelevantLibraryResolves(local, matcher) && local.MainClass == "" {
		return nil, &errs.UnsupportedEnvironmentError{Version: local.ID}
	}

	if err := l.downloadRequiredFiles(ctx, local, reporter); err != nil {
		return nil, err
	}

	nativesDir, err := l.extractNatives(local, matcher)
	if err != nil {
		return nil, err
	}

	assetPaths, err := l.reconstructAssets(ctx, local)
	if err != nil {
		return nil, err
	}

	classpath, err := launch.BuildClasspath(l.opts.GameDir, local, matcher)
	if err != nil {
		return nil, err
	}

	assembler := launch.NewAssembler(l.launchOptions(), l.auth)
	argv, err := assembler.BuildCommandLine(local, matcher, nativesDir, classpath, assetPaths)
	if err != nil {
		return nil, err
	}

	log.Info().Strs("argv", launch.Redact(argv, l.auth.AccessToken())).Msg("launching game")

	proc, err := l.spawner.Spawn(ctx, l.javaPath(), argv, l.opts.GameDir)
	if err != nil {
		return nil, err
	}

	if err := housekeeping.PurgeStaleNatives(filepath.Join(l.opts.GameDir, "versions")); err != nil {
		log.Warn().Err(err).Msg("housekeeping pass reported warnings")
	}

	return proc, nil
}

// resolveVersion reuses a cached manifest when present and current,
// otherwise installs it, then flattens any inheritsFrom chain.
func (l *Launcher) resolveVersion(ctx context.Context) (manifest.LocalVersion, error) {
	local, err := l.resolver.GetLocalVersion(l.opts.Version)
	if err != nil {
		return manifest.LocalVersion{}, err
	}

	if local == nil || !l.resolver.IsUpToDate(local) {
		local, err = l.resolver.InstallVersion(ctx, l.opts.Version)
		if err != nil {
			return manifest.LocalVersion{}, err
		}
	}

	return l.resolver.Resolve(ctx, *local, nil)
}

func (l *Launcher) featureMatcher() rules.FeatureMatcher {
	return staticMatcher{
		env:          rules.CurrentEnvironment(rules.HostOS(), rules.HostArch(), ""),
		isDemoUser:   l.opts.IsDemoUser,
		hasCustomRes: l.opts.Resolution != nil,
	}
}

// logReporter is the default Reporter used when a caller doesn't supply
// one: it logs each event's humanized progress line instead of discarding it.
type logReporter struct{}

func (logReporter) Report(e progress.Event) {
	log.Info().Msg(e.String())
}

// staticMatcher answers the recognized feature keys (is_demo_user,
// has_custom_resolution) from the configured Options and defaults every
// other key to false.
type staticMatcher struct {
	env          rules.Environment
	isDemoUser   bool
	hasCustomRes bool
}

func (m staticMatcher) HasFeature(key string, expected bool) bool {
	switch key {
	case "is_demo_user":
		return m.isDemoUser == expected
	case "has_custom_resolution":
		return m.hasCustomRes == expected
	default:
		return false
	}
}
func (m staticMatcher) CurrentOS() rules.Environment { return m.env }

func anyRelevantLibraryResolves(local manifest.LocalVersion, matcher rules.FeatureMatcher) bool {
	for _, lib := range local.Libraries {
		if lib.Relevant(matcher) {
			return true
		}
	}
	return false
}

// downloadRequiredFiles queues the "Version & Libraries" and "Resources"
// download jobs and runs them to completion.
func (l *Launcher) downloadRequiredFiles(ctx context.Context, local manifest.LocalVersion, reporter progress.Reporter) error {
	matcher := l.featureMatcher()

	job := download.NewJob("Version & Libraries", l.client, reporter)
	job.MaxConcurrent = l.maxConcurrentDownloads()
	job.MaxAttempts = l.maxDownloadAttempts()

	for _, lib := range local.Libraries {
		if !lib.Relevant(matcher) {
			continue
		}
		if lib.Downloads == nil || lib.Downloads.Artifact == nil {
			continue
		}
		coord, err := lib.Coordinate()
		if err != nil {
			return fmt.Errorf("parsing library coordinate %s: %w", lib.Name, err)
		}
		target := filepath.Join(l.librariesDir(), filepath.FromSlash(coord.Path()))
		job.Add(download.NewPreHashed(target, lib.Downloads.Artifact.URL, lib.Downloads.Artifact.SHA1, lib.Downloads.Artifact.Size, false))
	}

	if local.Downloads.Client != nil {
		jarPath := filepath.Join(l.versionDir(local.JarID()), local.JarID()+".jar")
		client := local.Downloads.Client
		job.Add(download.NewPreHashed(jarPath, client.URL, client.SHA1, client.Size, false))
	}

	if _, err := job.Run(ctx); err != nil {
		return fmt.Errorf("downloading version & libraries: %w", err)
	}

	if local.AssetIndex == nil {
		return nil
	}

	idx, err := l.assets.FetchIndex(ctx, *local.AssetIndex)
	if err != nil {
		return fmt.Errorf("fetching asset index: %w", err)
	}
	if _, err := l.assets.DownloadObjects(ctx, idx, reporter); err != nil {
		return fmt.Errorf("downloading resources: %w", err)
	}
	return nil
}

func (l *Launcher) extractNatives(local manifest.LocalVersion, matcher rules.FeatureMatcher) (string, error) {
	nativesDir := filepath.Join(l.versionDir(local.ID), fmt.Sprintf("%s-natives-%d", local.ID, time.Now().UnixNano()))
	extractor := natives.NewExtractor(l.opts.GameDir, rules.CurrentEnvironment(rules.HostOS(), rules.HostArch(), ""))

	if err := extractor.ExtractAll(local.Libraries, matcher, nativesDir); err != nil {
		if agg, ok := err.(*multierror.Error); ok {
			for _, w := range agg.Errors {
				log.Warn().Err(w).Msg("native extraction warning")
			}
		}
	}
	return nativesDir, nil
}

func (l *Launcher) reconstructAssets(ctx context.Context, local manifest.LocalVersion) (map[string]string, error) {
	if local.AssetIndex == nil {
		return nil, nil
	}

	idx, err := l.assets.FetchIndex(ctx, *local.AssetIndex)
	if err != nil {
		return nil, fmt.Errorf("fetching asset index: %w", err)
	}
	if err := l.assets.Reconstruct(local.AssetIndex.ID, idx, local.AssetIndex.MapToResources); err != nil {
		return nil, fmt.Errorf("reconstructing asset tree: %w", err)
	}

	objectsDir := filepath.Join(l.opts.GameDir, "assets", "objects")
	paths := make(map[string]string, len(idx.Objects))
	for logicalName, obj := range idx.Objects {
		paths[logicalName] = filepath.Join(objectsDir, filepath.FromSlash(hash.ObjectPath(obj.Hash)))
	}
	return paths, nil
}

func (l *Launcher) launchOptions() launch.Options {
	opts := launch.Options{
		GameDir:         l.opts.GameDir,
		JavaPath:        l.javaPath(),
		LauncherName:    l.opts.LauncherOptions.Name,
		LauncherVersion: l.opts.LauncherOptions.Version,
		ExplicitJVMArgs: l.opts.JVMArgs,
		IsDemoUser:      l.opts.IsDemoUser,
	}
	if l.opts.Resolution != nil {
		opts.Resolution = &launch.Resolution{Width: l.opts.Resolution.Width, Height: l.opts.Resolution.Height}
		opts.HasCustomRes = true
	}
	if l.opts.Proxy != nil {
		opts.ProxyHost = l.opts.Proxy.Host
		opts.ProxyPort = l.opts.Proxy.Port
		opts.ProxyUser = l.opts.Proxy.User
		opts.ProxyPass = l.opts.Proxy.Pass
	}
	return opts
}

func (l *Launcher) javaPath() string {
	if l.opts.JavaPath != "" {
		return l.opts.JavaPath
	}
	return "java"
}

func (l *Launcher) maxConcurrentDownloads() int {
	if l.opts.MaxConcurrentDownloads > 0 {
		return l.opts.MaxConcurrentDownloads
	}
	return download.DefaultMaxConcurrentDownloads
}

func (l *Launcher) maxDownloadAttempts() int {
	if l.opts.MaxDownloadAttempts > 0 {
		return l.opts.MaxDownloadAttempts
	}
	return download.DefaultMaxDownloadAttempts
}

// overrideAuthentication layers config.Options.SubstitutorOverrides on top
// of an underlying Authentication's own substitutions, with overrides
// winning on key collision.
type overrideAuthentication struct {
	launch.Authentication
	overrides map[string]string
}

func (o overrideAuthentication) ExtraSubstitutions() map[string]string {
	merged := make(map[string]string, len(o.overrides)+len(o.Authentication.ExtraSubstitutions()))
	for k, v := range o.Authentication.ExtraSubstitutions() {
		merged[k] = v
	}
	for k, v := range o.overrides {
		merged[k] = v
	}
	return merged
}
