// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata embedded into the binary at link time
// (name, timestamp, commit, version). The values are returned as an Info
// value that callers pass down explicitly; nothing else in the program reads
// the link-time variables.
//
//	go build -ldflags "-X spectro/pkg/build.buildVersion=0.3.0 -X spectro/pkg/build.buildCommit=$(git rev-parse HEAD)"
package build

import (
	"errors"
	"runtime/debug"
)

// Info describes one build of the program.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

const unknown = "unknown"

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

// Read returns the build information. Fields not set through -ldflags fall
// back to the module version recorded by the Go toolchain, then to "unknown".
// The name defaults to "spectro".
func Read() Info {
	info := Info{
		Name:    orDefault(buildName, "spectro"),
		Time:    orDefault(buildTime, unknown),
		Commit:  orDefault(buildCommit, unknown),
		Version: buildVersion,
	}
	if info.Version == "" {
		info.Version = unknown
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	return info
}

// Validate returns an error if a release-required field is missing. Release
// builds call it at startup; development builds skip it.
func (i Info) Validate() error {
	var errs []error
	if i.Name == "" || i.Name == unknown {
		errs = append(errs, errors.New("BuildName is required"))
	}
	if i.Time == "" || i.Time == unknown {
		errs = append(errs, errors.New("BuildTime is required"))
	}
	if i.Commit == "" || i.Commit == unknown {
		errs = append(errs, errors.New("BuildCommit is required"))
	}
	if i.Version == "" || i.Version == unknown {
		errs = append(errs, errors.New("BuildVersion is required"))
	}
	return errors.Join(errs...)
}

// String formats the info for --version output.
func (i Info) String() string {
	return i.Version + " (" + i.Commit + ", built " + i.Time + ")"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
