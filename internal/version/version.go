package version

import "runtime/debug"

// Build-time parameters set via -ldflags
var Version = "unknown"

// A user may install lintwatch using `go install github.com/opencode-ai/lintwatch@latest`.
// without -ldflags, in which case the version above is unset. As a workaround
// we use the embedded build info that *is* available when using `go install`.
func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	mainVersion := info.Main.Version
	if mainVersion == "" || mainVersion == "(devel)" {
		return
	}
	Version = mainVersion
}
