package repository

import (
	"testing"

	"mdrcore/testutil"
)

// TestDependencyBoundary keeps repositories backend-agnostic: they reach
// storage only through the graph.Store contract, never a concrete driver.
func TestDependencyBoundary(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StoreImplImportForbidden,
		"repositories must not import concrete store backends")
}
