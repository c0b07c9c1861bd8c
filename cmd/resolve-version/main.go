// Command resolve-version is a scrappy manual check: given a version id
// it refreshes the manifest index, installs (or reuses) the cached
// manifest, flattens any inheritsFrom chain, and prints what the
// launcher would have resolved to. It never downloads libraries or
// assets and never spawns Java.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/quasarmc/launchercore/resolver"
)

func main() {
	versionID := flag.String("version", "1.20.1", "version id to resolve")
	gameDir := flag.String("dir", filepath.Join(os.TempDir(), "resolve-version-demo"), "game directory to cache manifests under")
	flag.Parse()

	if err := os.MkdirAll(*gameDir, 0o755); err != nil {
		panic(err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	mgr := resolver.NewManager(client, *gameDir)

	ctx := context.Background()

	fmt.Printf("Refreshing manifest index...\n")
	if err := mgr.Refresh(ctx); err != nil {
		panic(err)
	}

	local, err := mgr.GetLocalVersion(*versionID)
	if err != nil {
		panic(err)
	}

	if local == nil || !mgr.IsUpToDate(local) {
		fmt.Printf("Installing %s...\n", *versionID)
		local, err = mgr.InstallVersion(ctx, *versionID)
		if err != nil {
			panic(err)
		}
	} else {
		fmt.Printf("%s already cached and up to date\n", *versionID)
	}

	resolved, err := mgr.Resolve(ctx, *local, nil)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Resolved %s\n", resolved.ID)
	fmt.Printf("  mainClass:    %s\n", resolved.MainClass)
	fmt.Printf("  inheritsFrom: %q\n", resolved.InheritsFrom)
	fmt.Printf("  libraries:    %d\n", len(resolved.Libraries))
	if resolved.AssetIndex != nil {
		fmt.Printf("  assetIndex:   %s\n", resolved.AssetIndex.ID)
	}
}
