// Package version reports build information for the Animekun backend.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X ...".
var (
	Name      = "Animekun"
	Version   = "0.1.0"
	BuildTime = ""
	GitCommit = ""
)

// Info is the build information served by /api/v1/version.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildTime string `json:"buildTime,omitempty"`
	GitCommit string `json:"gitCommit,omitempty"`
	GoVersion string `json:"goVersion"`
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}

// String formats the info for the startup banner, e.g.
// "Animekun v0.1.0 (abc1234)".
func (i Info) String() string {
	s := fmt.Sprintf("%s v%s", i.Name, i.Version)
	if i.GitCommit != "" {
		s += fmt.Sprintf(" (%s)", i.GitCommit[:min(7, len(i.GitCommit))])
	}
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	return s
}

// UserAgent identifies outgoing API requests.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+https://github.com/edumarques81/animekun-backend)", Name, Version)
}
