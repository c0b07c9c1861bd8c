// Package config defines the plain options struct an external CLI or
// process-supervisor fills in before constructing a Launcher. No disk or
// flag parsing happens here: loading/saving configuration is explicitly a
// caller concern.
package config

import (
	"github.com/quasarmc/launchercore/download"
	"github.com/quasarmc/launchercore/launch"
)

// Proxy configures an optional outbound proxy for the spawned game
// process's --proxyHost/--proxyPort/--proxyUser/--proxyPass arguments.
type Proxy struct {
	Host string
	Port int
	User string
	Pass string
}

// Resolution is an explicit game window size.
type Resolution struct {
	Width, Height int
}

// LauncherOptions identifies the launcher itself for the
// minecraft.launcher.brand/version substitution keys.
type LauncherOptions struct {
	Name    string
	Version string
}

// Options is the full set of recognized launch-time options.
type Options struct {
	GameDir    string
	Version    string
	JavaPath   string
	JVMArgs    []string
	Proxy      *Proxy
	Resolution *Resolution

	LauncherOptions LauncherOptions

	// Authentication is the opaque identity capability the launch
	// assembler substitutes auth_* placeholders from. Defaults to
	// launch.OfflineAuthentication when left nil.
	Authentication launch.Authentication

	// IsDemoUser requests the legacy --demo game argument and the
	// is_demo_user feature gate on modern rule-evaluated arguments.
	IsDemoUser bool

	MaxConcurrentDownloads int
	MaxDownloadAttempts    int

	// SubstitutorOverrides supplies additional or overriding ${key}
	// values beyond the recognized set.
	SubstitutorOverrides map[string]string
}

// DefaultOptions returns an Options with every documented default applied
// (maxConcurrentDownloads=16, maxDownloadAttempts=5) and no other field
// set.
func DefaultOptions() Options {
	return Options{
		MaxConcurrentDownloads: download.DefaultMaxConcurrentDownloads,
		MaxDownloadAttempts:    download.DefaultMaxDownloadAttempts,
	}
}
