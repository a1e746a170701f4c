package registry

import "github.com/blang/semver/v4"

// NeedsUpdate reports whether rec's bootloader version is older than
// candidate, following kryptco-kr's "compare installed vs. latest
// version" shape (src/common/version/latest_version.go) repointed at
// semver.Version comparisons instead of a remote JSON manifest.
func (r Record) NeedsUpdate(candidate semver.Version) bool {
	return r.BLVersion.LT(candidate)
}
