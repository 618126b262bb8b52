package internal

import (
	"runtime/debug"
	"time"
)

// Build information read from the VCS stamp of the binary. The values
// stay at their defaults for test binaries and `go run`.
var (
	BuildRevision      = "unknown"
	BuildRevisionTime  time.Time
	BuildLocalModified = false
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	readBuildSettings(info.Settings)
}

func readBuildSettings(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			BuildRevision = setting.Value
		case "vcs.time":
			// an unparsable time is left as the zero time.
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err == nil {
				BuildRevisionTime = t.UTC()
			}
		case "vcs.modified":
			BuildLocalModified = setting.Value == "true"
		}
	}
}

// Version identifies the build in the ping endpoint and the logs.
// Builds with local modifications get a "-dirty" suffix.
func Version() string {
	v := BuildRevision
	if len(v) > 12 {
		v = v[:12]
	}
	if BuildLocalModified {
		v += "-dirty"
	}
	return v
}
