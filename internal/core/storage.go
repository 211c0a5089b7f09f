package core

import (
	"context"
	"fmt"
	"os"

	"mdrcore/internal/infra/graph/memory"
	"mdrcore/internal/infra/graph/neo4j"
	"mdrcore/internal/infra/graph/postgres"
	"mdrcore/internal/infra/graph/sqlite"
	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// StorageDriver identifies a concrete graph store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageNeo4j    StorageDriver = "neo4j"    // Neo4j server
)

// OpenGraphStore selects a backend using environment variables. Defaults
// to sqlite when unset.
//
//	MDRCORE_STORAGE_DRIVER: memory|sqlite|postgres|neo4j (default sqlite)
//	MDRCORE_SQLITE_PATH: path to sqlite file (default ./mdrcore.db)
//	MDRCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	MDRCORE_NEO4J_URI / _USERNAME / _PASSWORD / _DATABASE: when driver=neo4j
func OpenGraphStore(ctx context.Context, engine *domain.RulesEngine) (graph.Store, error) {
	driver := os.Getenv("MDRCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("MDRCORE_SQLITE_PATH"), engine)
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("MDRCORE_POSTGRES_DSN"), engine)
	case StorageNeo4j:
		uri := os.Getenv("MDRCORE_NEO4J_URI")
		if uri == "" {
			uri = "bolt://localhost:7687"
		}
		return neo4j.NewStore(ctx, neo4j.Config{
			URI:      uri,
			Username: os.Getenv("MDRCORE_NEO4J_USERNAME"),
			Password: os.Getenv("MDRCORE_NEO4J_PASSWORD"),
			Database: os.Getenv("MDRCORE_NEO4J_DATABASE"),
		}, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
