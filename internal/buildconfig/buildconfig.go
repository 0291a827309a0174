package buildconfig

import (
	"runtime"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/Harshitk-cp/substrate/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func Version() string {
	return version
}

// Commit returns the injected commit, falling back to the VCS revision
// stamped by the Go toolchain.
func Commit() string {
	if commit != "" {
		return commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func Get() Info {
	return Info{
		Version:   Version(),
		Commit:    Commit(),
		GoVersion: runtime.Version(),
	}
}

// UserAgent identifies outbound requests made by the server.
func UserAgent() string {
	return "substrate/" + version
}
