package rules

import (
	"os/exec"
	"runtime"
	"strings"
)

// HostOS maps the running Go GOOS to the OS name Mojang manifests use.
func HostOS() OSName {
	switch runtime.GOOS {
	case "windows":
		return OSWindows
	case "darwin":
		return OSOSX
	default:
		return OSLinux
	}
}

// HostArch reports "64" or "32" for the running process' architecture,
// the only two values a library's natives[currentOS] classifier template
// ever substitutes ${arch} with.
func HostArch() string {
	switch runtime.GOARCH {
	case "386", "arm":
		return "32"
	default:
		return "64"
	}
}

// IsWindows10 reports whether the host is Windows 10 (or later, since
// Windows 11 still reports major version 10 to most tooling). Used by the
// legacy-argument branch of the launch assembler.
func IsWindows10() bool {
	if runtime.GOOS != "windows" {
		return false
	}
	out, err := exec.Command("cmd", "/C", "ver").Output()
	if err != nil {
		return false
	}
	return containsWindows10(string(out))
}

func containsWindows10(verOutput string) bool {
	return strings.Contains(verOutput, "10.0") || strings.Contains(verOutput, "Version 10")
}
