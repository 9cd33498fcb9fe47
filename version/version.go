package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
)

var (
	// Set at build time with -ldflags.
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
)

// ABIVersion is the host interface revision. The host refuses a firmware
// whose major ABI differs from its own.
const ABIVersion = "3.1.0"

// tagLen is the length of the firmware tag reported to the host.
const tagLen = 6

// Info is the firmware version reported to the host.
type Info struct {
	Major      uint16    `json:"major"`
	Minor      uint16    `json:"minor"`
	Build      uint16    `json:"build"`
	Tag        string    `json:"tag"`
	ABI        string    `json:"abi"`
	Version    string    `json:"version"`
	GitCommit  string    `json:"git_commit,omitempty"`
	GitBranch  string    `json:"git_branch,omitempty"`
	GoVersion  string    `json:"go_version"`
	BuildDate  time.Time `json:"build_date"`
	IsRelease  bool      `json:"is_release"`
	IsModified bool      `json:"is_modified"`
}

// GetVersionInfo returns the version of the running binary.
func GetVersionInfo() *Info {
	info := &Info{
		ABI:       ABIVersion,
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	info.Major, info.Minor, info.Build = parseSemver(Version)

	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = buildInfo.GoVersion
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = setting.Value
				}
			case "vcs.modified":
				info.IsModified = setting.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
						info.BuildDate = t
					}
				}
			}
		}
	}

	info.Tag = tag(info.GitCommit)
	return info
}

// String returns "major.minor.build-tag".
func (i *Info) String() string {
	return fmt.Sprintf("%d.%d.%d-%s", i.Major, i.Minor, i.Build, i.Tag)
}

// Compatible reports whether a host ABI shares this firmware's major ABI.
func Compatible(hostABI string) bool {
	hostMajor, _, _ := parseSemver(hostABI)
	fwMajor, _, _ := parseSemver(ABIVersion)
	return hostABI != "" && hostMajor == fwMajor
}

// parseSemver reads "v1.4.2-rc1" style versions. Missing parts are zero.
func parseSemver(v string) (major, minor, build uint16) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.SplitN(v, ".", 3)
	out := [3]uint16{}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			break
		}
		out[i] = uint16(n)
	}
	return out[0], out[1], out[2]
}

func tag(commit string) string {
	if commit == "" {
		return "dev"
	}
	if len(commit) > tagLen {
		return commit[:tagLen]
	}
	return commit
}
