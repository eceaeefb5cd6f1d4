// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"strings"
	"testing"
)

// withLinkerValues sets the -ldflags variables and a fresh development info
// for one test, restoring the previous state afterwards.
func withLinkerValues(t *testing.T, name, time, commit, version string) {
	t.Helper()
	prev := [4]string{buildName, buildTime, buildCommit, buildVersion}
	prevFlags := buildFlags
	t.Cleanup(func() {
		buildName, buildTime, buildCommit, buildVersion = prev[0], prev[1], prev[2], prev[3]
		buildFlags = prevFlags
	})
	buildName, buildTime, buildCommit, buildVersion = name, time, commit, version
	buildFlags = devInfo()
}

func TestInitializeRequiresEveryValue(t *testing.T) {
	tests := []struct {
		name    string
		values  [4]string
		missing string
	}{
		{"no name", [4]string{"", "2025-04-13", "abcdef1", "v0.3.0"}, "BuildName"},
		{"no time", [4]string{"spectral", "", "abcdef1", "v0.3.0"}, "BuildTime"},
		{"no commit", [4]string{"spectral", "2025-04-13", "", "v0.3.0"}, "BuildCommit"},
		{"no version", [4]string{"spectral", "2025-04-13", "abcdef1", ""}, "BuildVersion"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLinkerValues(t, tt.values[0], tt.values[1], tt.values[2], tt.values[3])

			err := Initialize()
			if !errors.Is(err, ErrMissingFlags) {
				t.Fatalf("Initialize() error = %v, want ErrMissingFlags", err)
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("error %q does not name %s", err, tt.missing)
			}
			if got := GetBuildFlags(); *got != *devInfo() {
				t.Errorf("failed Initialize changed build info to %+v", *got)
			}
		})
	}
}

func TestInitializeCopiesLinkerValues(t *testing.T) {
	withLinkerValues(t, "spectral", "2025-04-13", "abcdef1", "v0.3.0")

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize(): %v", err)
	}
	want := Info{Name: "spectral", Time: "2025-04-13", Commit: "abcdef1", Version: "v0.3.0"}
	if got := *GetBuildFlags(); got != want {
		t.Errorf("GetBuildFlags() = %+v, want %+v", got, want)
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	withLinkerValues(t, "", "", "", "")
	_ = Initialize()

	if got := GetBuildFlags(); got.Name != "spectral" || got.Version != "dev" {
		t.Errorf("development info = %+v", *got)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "spectral", Time: "2025-04-13", Commit: "abcdef1", Version: "v0.3.0"}
	want := "spectral v0.3.0 (commit abcdef1, built 2025-04-13)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
