package app

import (
	"runtime/debug"
	"strings"
)

// Release metadata stamped by the release build:
//
//	-ldflags "-X github.com/heartmarshall/sketch2code/internal/app.Version=v1.2.0 -X ...app.Commit=abc1234"
var (
	Version = ""
	Commit  = ""
)

// BuildVersion reports the running build for startup logs and /health.
// Unstamped builds fall back to the module version and VCS revision the
// Go toolchain embeds.
func BuildVersion() string {
	version, commit := Version, Commit

	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && commit == "" {
				commit = s.Value
			}
		}
	}

	if version == "" {
		version = "dev"
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}

	var b strings.Builder
	b.WriteString(version)
	if commit != "" {
		b.WriteString("+")
		b.WriteString(commit)
	}
	return b.String()
}
