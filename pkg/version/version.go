// Package version derives the agent's build identity from the VCS metadata
// Go embeds into the binary. No -ldflags wiring is required.
package version

import (
	"runtime/debug"
	"sync"
)

// AppName identifies the agent in logs and outbound user agents.
const AppName = "lensora"

var (
	loadOnce sync.Once
	revision string
	dirty    bool
)

func load() {
	revision = "dev"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if s.Value != "" {
				revision = s.Value
				if len(revision) > 8 {
					revision = revision[:8]
				}
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
}

// Commit returns the short VCS revision, "dev" for non-VCS builds (e.g.
// `go test`), with a "+dirty" suffix for builds from a modified tree so
// comment audits can tell patched deployments apart.
func Commit() string {
	loadOnce.Do(load)
	if dirty {
		return revision + "+dirty"
	}
	return revision
}

// UserAgent is the identity string sent on outbound HTTP calls to the
// ticket platform.
func UserAgent() string {
	return AppName + "/" + Commit()
}
