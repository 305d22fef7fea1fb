// Package version reports the build of the media internals service.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Overridden with -ldflags "-X .../internal/version.Version=..." at release.
var (
	Name      = "Stellar Media Internals"
	Version   = "0.1.0"
	BuildTime = ""
	GitCommit = ""
)

const shortCommit = 7

// Info is served by /api/v1/version and printed at start-up.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildTime string `json:"buildTime,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
}

// GetInfo returns the build information. Commit and build time fall back to
// the VCS stamp the Go toolchain embeds when they were not set by ldflags.
func GetInfo() Info {
	info := Info{
		Name:      Name,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = withBuildInfo(info, bi)
	}
	return info
}

func withBuildInfo(info Info, bi *debug.BuildInfo) Info {
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String formats the info for banners and the version subcommand.
func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s v%s", i.Name, i.Version)
	if i.GitCommit != "" {
		commit := i.GitCommit[:min(shortCommit, len(i.GitCommit))]
		if i.Modified {
			commit += "-dirty"
		}
		fmt.Fprintf(&b, " (%s)", commit)
	}
	if i.BuildTime != "" {
		fmt.Fprintf(&b, " built %s", i.BuildTime)
	}
	return b.String()
}
