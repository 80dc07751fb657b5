// SPDX-License-Identifier: MIT
//
// Package build carries the version stamp of the clapper binary. Release
// builds inject name, timestamp, commit and version with -ldflags; plain
// `go build` and `go run` fall back to the module and VCS information the
// toolchain embeds. The stamp appears in the startup log, the version
// command, the WebSocket hello message and the mDNS TXT record.
package build

import (
	"fmt"
	"runtime/debug"
)

const defaultName = "clapper"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by -ldflags:
//
//	-X clapper/pkg/build.buildName=clapper -X clapper/pkg/build.buildVersion=v0.3.0 ...
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    defaultName,
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// readBuildInfo is swapped out by tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize resolves the build information. With no ldflags at all it
// reads the embedded module information instead. A partial set of ldflags
// is a broken release build and returns an error naming the first missing
// flag.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		*buildFlags = fromBuildInfo(readBuildInfo())
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// fromBuildInfo maps the toolchain's module and VCS settings onto the
// stamp. Anything absent stays "unknown".
func fromBuildInfo(info *debug.BuildInfo, ok bool) ldFlags {
	flags := ldFlags{Name: defaultName, Time: "unknown", Commit: "unknown", Version: "unknown"}
	if !ok || info == nil {
		return flags
	}
	if v := info.Main.Version; v != "" {
		flags.Version = v
	}
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			flags.Commit = s.Value
			if len(flags.Commit) > 12 {
				flags.Commit = flags.Commit[:12]
			}
		case "vcs.time":
			flags.Time = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && flags.Commit != "unknown" {
		flags.Commit += "-dirty"
	}
	return flags
}

// GetBuildFlags returns the current build information. Call Initialize
// first.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for the version command and the
// startup log line.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
