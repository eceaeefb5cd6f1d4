// SPDX-License-Identifier: MIT
//
// Package build exposes the name, version, commit and build time embedded
// with -ldflags, for example:
//
//	go build -ldflags "-X spectral/pkg/build.buildName=spectral \
//	  -X spectral/pkg/build.buildVersion=0.3.0 \
//	  -X spectral/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X spectral/pkg/build.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Development builds without ldflags report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown by the CLI.
const Description = "Real-time audio spectrum analyzer"

// Info is the build metadata of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = devInfo()
)

func devInfo() *Info {
	return &Info{
		Name:    "spectral",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// ErrMissingFlags is wrapped by Initialize when ldflags were not provided.
var ErrMissingFlags = errors.New("build flags missing")

// Initialize copies the ldflags values into the build info. When any of them
// is missing it returns an error wrapping ErrMissingFlags and leaves the
// development defaults in place.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("%w: BuildName is required", ErrMissingFlags)
	}
	if buildTime == "" {
		return fmt.Errorf("%w: BuildTime is required", ErrMissingFlags)
	}
	if buildCommit == "" {
		return fmt.Errorf("%w: BuildCommit is required", ErrMissingFlags)
	}
	if buildVersion == "" {
		return fmt.Errorf("%w: BuildVersion is required", ErrMissingFlags)
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}
