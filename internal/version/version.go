package version

import (
	"runtime/debug"
	"sync"
)

// Version information for treeq
const (
	// Version is the current semantic version
	Version = "0.1.0"
)

// Set at build time with -ldflags "-X github.com/standardbeagle/treeq/internal/version.GitCommit=..."
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

// Info returns the short version string
func Info() string {
	return Version
}

// FullInfo returns detailed version information
func FullInfo() string {
	return "treeq " + Version + " (commit: " + revision() + ", built: " + BuildDate + ")"
}

var (
	rev     string
	revOnce sync.Once
)

// revision prefers the ldflags commit and falls back to the VCS stamp
func revision() string {
	revOnce.Do(func() {
		rev = GitCommit
		if rev != "unknown" {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				rev = s.Value[:12]
			}
		}
	})
	return rev
}
