package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version, Commit and BuildDate are set at build time, e.g.
// go build -ldflags "-X github.com/oukeidos/mdtrans/internal/version.Version=0.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// resolved fills Commit from VCS stamps when ldflags left it unset.
func resolved() (version, commit string) {
	version, commit = Version, Commit
	info, ok := readBuildInfo()
	if !ok {
		return version, commit
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	if commit == "unknown" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				commit = s.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		}
	}
	return version, commit
}

// Info returns a multi-line version string for CLI output.
func Info() string {
	v, c := resolved()
	return fmt.Sprintf("mdtrans %s\ncommit: %s\nbuild: %s\ngo: %s", v, c, BuildDate, runtime.Version())
}
