package utils

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// GetBuildInfo returns version, commit hash and build time from the
// embedded build metadata.
func GetBuildInfo() (version, commit, date string) {
	version = "v0.0.0-dev"
	commit = "unknown"
	date = "unknown"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, date
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.time":
			date = setting.Value
		}
	}

	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}

	return version, commit, date
}

// GetVersionShort returns "version (commit)".
func GetVersionShort() string {
	version, commit, _ := GetBuildInfo()
	return fmt.Sprintf("%s (%s)", version, commit)
}

// GetBuildVersion returns "version (commit) built at date".
func GetBuildVersion() string {
	version, commit, date := GetBuildInfo()
	return fmt.Sprintf("%s (%s) built at %s", version, commit, date)
}
