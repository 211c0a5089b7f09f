package graph

import (
	"context"
	"errors"
	"time"

	"mdrcore/pkg/domain"
)

// ErrReadOnly is returned by mutating Tx calls inside Store.View.
var ErrReadOnly = errors.New("graph: read-only transaction")

// Tx exposes the graph operations a repository needs within one atomic
// scope. Implementations guarantee that, per root, at most one version edge
// is open at any instant and that version edges never overlap in time.
type Tx interface {
	// Libraries.
	EnsureLibrary(lib domain.Library) error
	GetLibrary(name string) (domain.Library, bool)

	// Roots.
	CreateRoot(root RootRecord) error
	GetRoot(uid string) (RootRecord, bool)
	MarkRootDeleted(uid string) error
	RootUIDs(entity domain.EntityType) []string

	// NextCounter returns the next value of the per-entity-type uid
	// counter. Strictly monotonic; never reused even on rollback of the
	// surrounding transaction is not required (gaps in uids are harmless,
	// gaps in versions are not).
	NextCounter(entity domain.EntityType) (int64, error)

	// Values. PutValue is create-or-reuse keyed on the content-derived ID.
	PutValue(value ValueRecord) (ValueRecord, error)
	GetValue(id string) (ValueRecord, bool)

	// Version edges, ordered by start date (oldest first).
	VersionEdges(uid string) ([]VersionEdgeRecord, error)
	AppendVersionEdge(edge VersionEdgeRecord) error
	// CloseVersionEdge stamps the end date on the currently open edge of
	// the root. Closing a root with no open edge is an integrity error.
	CloseVersionEdge(uid string, end time.Time) error

	// Reference edges.
	CreateRefEdge(edge RefEdgeRecord) (RefEdgeRecord, error)
	DeleteRefEdge(id string) error
	IncomingRefs(valueID string) ([]RefEdgeRecord, error)
	OutgoingRefs(valueID string) ([]RefEdgeRecord, error)

	// ValueOwners returns every version edge pointing at the value node.
	// Callers must tolerate fan-in: shared values have several owners.
	ValueOwners(valueID string) ([]VersionEdgeRecord, error)

	// FindRootsByProperty returns the uids of roots of the given type whose
	// latest value carries property == value. With activeOnly set, roots
	// whose latest edge is Retired, and soft-deleted roots, are skipped.
	FindRootsByProperty(entity domain.EntityType, property, value string, activeOnly bool) ([]string, error)

	// RecordChange registers a change for rule evaluation at commit.
	RecordChange(change domain.Change)
}

// Store is the persistence substrate contract. Every multi-step mutation
// runs inside RunInTransaction: a failed fn leaves no visible effect and
// the previous latest version edge stays authoritative.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) (domain.Result, error)
	// View runs fn against a read-only snapshot. Mutating calls on the Tx
	// return ErrReadOnly.
	View(ctx context.Context, fn func(tx Tx) error) error
	// PruneOrphanValues removes value and sub-value nodes no longer
	// referenced by any version or reference edge, returning the count.
	// Deferred maintenance, never required for correctness.
	PruneOrphanValues(ctx context.Context) (int, error)
	Close() error
}
