package domain

import (
	"testing"

	"mdrcore/testutil"
)

// TestDependencyBoundary keeps the domain package free of third-party and
// internal imports; it is consumed by every layer and by external tooling.
func TestDependencyBoundary(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(ip string) bool {
		return testutil.ThirdPartyImportForbidden(ip) || testutil.InternalImportForbidden(ip)
	}, "domain stays standard-library only")
}
