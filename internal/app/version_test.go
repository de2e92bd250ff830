package app

import (
	"strings"
	"testing"
)

func TestBuildVersion_Stamped(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	Version, Commit = "v1.2.0", "0123456789abcdef"
	if got, want := BuildVersion(), "v1.2.0+0123456789ab"; got != want {
		t.Errorf("BuildVersion() = %q, want %q", got, want)
	}
}

func TestBuildVersion_Unstamped(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	Version, Commit = "", ""
	if got := BuildVersion(); got == "" || strings.HasPrefix(got, "+") {
		t.Errorf("BuildVersion() = %q, want a non-empty version", got)
	}
}
