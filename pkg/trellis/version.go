package trellis

import (
	"fmt"
)

// Version is the current semver of the trellis public API.
//
// # API Stability
//
//   - MAJOR: breaking changes to Cell, Engine, container, or attribute APIs.
//   - MINOR: new cell kinds, container operations, or attribute builders.
//   - PATCH: bug fixes with no surface change.
const Version = "0.1.0"

// VersionInfo carries the same information as Version in a structured
// form.
type VersionInfo struct {
	Version   string
	GoVersion string
}

// GetVersionInfo returns detailed version information for diagnostics.
func GetVersionInfo() VersionInfo {
	return VersionInfo{Version: Version, GoVersion: "1.24+"}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("trellis %s (built with go%s)", v.Version, v.GoVersion)
}

// APIVersion is Version parsed into its three semver components, for
// programmatic compatibility checks.
type APIVersion struct {
	Major int
	Minor int
	Patch int
}

// CurrentAPIVersion returns the running build's APIVersion.
func CurrentAPIVersion() APIVersion {
	return parseVersion(Version)
}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func parseVersion(v string) APIVersion {
	var av APIVersion
	fmt.Sscanf(v, "%d.%d.%d", &av.Major, &av.Minor, &av.Patch)
	return av
}

// CheckAPIVersion reports whether the running build is compatible with a
// version a caller was built against. Compatible means the same major
// version: a minor/patch bump never breaks Cell, Engine, container, or
// attribute surfaces, but a major bump can.
func CheckAPIVersion(required string) bool {
	return CurrentAPIVersion().Major == parseVersion(required).Major
}
