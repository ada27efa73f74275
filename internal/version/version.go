// Package version reports which bigslides build is running. Releases inject
// the values below with -ldflags; a plain `go install` falls back to the
// module version recorded in the binary.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	UserAgent string `json:"userAgent"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Version:   current(),
		GitCommit: shortCommit(gitCommit),
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent: UserAgent(),
	}
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("bigslides %s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// UserAgent is sent with every remote stylesheet and script fetch.
func UserAgent() string {
	return fmt.Sprintf("bigslides/%s (%s/%s)", current(), runtime.GOOS, runtime.GOARCH)
}

func current() string {
	bi, ok := debug.ReadBuildInfo()
	return resolve(version, bi, ok)
}

// resolve prefers the injected version and falls back to the main module
// version for `go install github.com/hupe1980/bigslides/cmd/bigslides@vX`.
func resolve(injected string, bi *debug.BuildInfo, ok bool) string {
	if injected != "dev" || !ok || bi == nil {
		return injected
	}

	switch v := bi.Main.Version; v {
	case "", "(devel)":
		return injected
	default:
		return v
	}
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
