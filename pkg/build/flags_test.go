// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion

	os.Exit(exitCode)
}

func TestRead(t *testing.T) {
	buildName = "spectro-test"
	buildTime = "2026-10-19"
	buildCommit = "abcdef123"
	buildVersion = "v1.0.0"

	info := Read()
	want := Info{Name: "spectro-test", Time: "2026-10-19", Commit: "abcdef123", Version: "v1.0.0"}
	if info != want {
		t.Errorf("Read() = %+v, want %+v", info, want)
	}
	if err := info.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if got := info.String(); got != "v1.0.0 (abcdef123, built 2026-10-19)" {
		t.Errorf("String() = %q", got)
	}
}

func TestReadDefaults(t *testing.T) {
	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""

	info := Read()
	if info.Name != "spectro" {
		t.Errorf("Name = %q, want spectro", info.Name)
	}
	if info.Time != unknown || info.Commit != unknown {
		t.Errorf("expected unknown time/commit, got %+v", info)
	}
	if info.Version == "" {
		t.Error("Version must never be empty")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		info       Info
		wantErrMsg string
	}{
		{"Missing BuildName", Info{Time: "t", Commit: "c", Version: "v"}, "BuildName is required"},
		{"Missing BuildTime", Info{Name: "n", Commit: "c", Version: "v"}, "BuildTime is required"},
		{"Missing BuildCommit", Info{Name: "n", Time: "t", Commit: unknown, Version: "v"}, "BuildCommit is required"},
		{"Missing BuildVersion", Info{Name: "n", Time: "t", Commit: "c"}, "BuildVersion is required"},
		{"Success Case", Info{Name: "n", Time: "t", Commit: "c", Version: "v"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErrMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErrMsg) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErrMsg)
			}
		})
	}
}
