package core

import (
	"go/types"
	"path/filepath"
	"runtime"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestGraphStoreImplementationsHardening ensures only sanctioned backend packages
// provide concrete implementations of the graph.Store interface. This guards
// architectural drift from introducing additional backends outside the vetted
// locations (memory + sqlite + postgres + neo4j) without an explicit test update.
func TestGraphStoreImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "mdrcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	// Locate the Store interface type from the graph package.
	var storeIface *types.Interface
	for _, p := range pkgs {
		if p.PkgPath == "mdrcore/pkg/graph" {
			obj := p.Types.Scope().Lookup("Store")
			if obj == nil {
				t.Fatalf("graph.Store not found")
			}
			iface, ok := obj.Type().Underlying().(*types.Interface)
			if !ok {
				t.Fatalf("graph.Store is not an interface")
			}
			storeIface = iface
		}
	}
	if storeIface == nil {
		t.Fatalf("failed to resolve Store interface")
	}
	allowed := map[string]struct{}{
		"mdrcore/internal/infra/graph/memory":   {},
		"mdrcore/internal/infra/graph/sqlite":   {},
		"mdrcore/internal/infra/graph/postgres": {},
		"mdrcore/internal/infra/graph/neo4j":    {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			obj := p.Types.Scope().Lookup(name)
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), storeIface) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		_, file, line, _ := runtime.Caller(0)
		t.Fatalf("unexpected Store implementations (update allowed list intentionally if adding a new backend):\nfile=%s:%d\n%s", filepath.Base(file), line, unexpected)
	}
}
