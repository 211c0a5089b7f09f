// Package repository implements the generic versioned-aggregate repository
// over the graph store contract: uid generation, lifecycle transitions,
// content-addressed value snapshots, reference wiring and rewiring, and the
// audit history derived from version edges.
package repository

import (
	"context"
	"fmt"
	"time"

	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// Repository provides versioned CRUD over one aggregate type. All methods
// are safe for concurrent use; write methods run inside a single store
// transaction, so a failure leaves the previous latest version visible.
type Repository[A domain.Aggregate] struct {
	store  graph.Store
	def    EntityDef[A]
	policy domain.VersionPolicy
	nowFn  func() time.Time
}

// Option configures a Repository.
type Option[A domain.Aggregate] func(*Repository[A])

// WithVersionPolicy overrides the version numbering scheme.
func WithVersionPolicy[A domain.Aggregate](policy domain.VersionPolicy) Option[A] {
	return func(r *Repository[A]) { r.policy = policy }
}

// WithClock overrides the time source. Tests pin it for deterministic
// version edge timestamps.
func WithClock[A domain.Aggregate](nowFn func() time.Time) Option[A] {
	return func(r *Repository[A]) { r.nowFn = nowFn }
}

// New constructs a repository for the aggregate type described by def.
func New[A domain.Aggregate](store graph.Store, def EntityDef[A], opts ...Option[A]) *Repository[A] {
	r := &Repository[A]{
		store:  store,
		def:    def,
		policy: domain.StandardVersionPolicy{},
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateUID reserves the next uid for the repository's entity type, e.g.
// "OdmForm_000042". Reserved uids are never reissued.
func (r *Repository[A]) GenerateUID(ctx context.Context) (string, error) {
	var uid string
	_, err := r.store.RunInTransaction(ctx, func(tx graph.Tx) error {
		n, err := tx.NextCounter(r.def.Entity)
		if err != nil {
			return err
		}
		uid = fmt.Sprintf("%s_%06d", r.def.Entity.UIDPrefix(), n)
		return nil
	})
	if err != nil {
		return "", err
	}
	return uid, nil
}

// Create persists a new root with its first draft version (0.1 under the
// standard policy). The aggregate's Library must name an existing editable
// library; a blank UID is generated. Returns the stored aggregate with its
// lifecycle metadata populated.
func (r *Repository[A]) Create(ctx context.Context, agg A) (A, error) {
	var created A
	_, err := r.store.RunInTransaction(ctx, func(tx graph.Tx) error {
		item := agg.Item()
		if err := r.requireEditableLibrary(tx, item.Library); err != nil {
			return err
		}
		uid := item.UID
		if uid == "" {
			n, err := tx.NextCounter(r.def.Entity)
			if err != nil {
				return err
			}
			uid = fmt.Sprintf("%s_%06d", r.def.Entity.UIDPrefix(), n)
		}
		// A generated uid can still collide when a caller-supplied uid
		// claimed the counter's pattern earlier, so the check covers
		// both paths.
		if _, exists := tx.GetRoot(uid); exists {
			return domain.AlreadyExistsError{Entity: r.def.Entity, Property: "uid", Value: uid}
		}
		status, err := domain.CheckTransition("", domain.LifecycleCreate)
		if err != nil {
			return err
		}
		if err := tx.CreateRoot(graph.RootRecord{UID: uid, Entity: r.def.Entity, Library: item.Library}); err != nil {
			return err
		}
		value, err := r.putEncodedValue(tx, agg)
		if err != nil {
			return err
		}
		now := r.nowFn()
		edge := graph.VersionEdgeRecord{
			RootUID:           uid,
			Entity:            r.def.Entity,
			ValueID:           value.ID,
			Version:           r.policy.Initial(),
			Status:            status,
			StartDate:         now,
			AuthorID:          item.AuthorID,
			ChangeDescription: item.ChangeDescription,
		}
		if err := tx.AppendVersionEdge(edge); err != nil {
			return err
		}
		root, _ := tx.GetRoot(uid)
		created, err = r.loadAggregate(tx, root, edge)
		if err != nil {
			return err
		}
		after, err := domain.NewChangePayloadFromValue(created)
		if err != nil {
			return err
		}
		tx.RecordChange(domain.Change{
			Entity: r.def.Entity,
			UID:    uid,
			Action: domain.ActionCreate,
			Before: domain.UndefinedChangePayload(),
			After:  after,
		})
		return nil
	})
	if err != nil {
		var zero A
		return zero, err
	}
	return created, nil
}

// FindByUID loads one aggregate. Without options it returns the latest
// non-retired version of a non-deleted root; AtVersion, WithStatus, AsOf
// and IncludeDeleted narrow or widen the selection.
func (r *Repository[A]) FindByUID(ctx context.Context, uid string, opts ...FindOption) (A, error) {
	var (
		out A
		cfg = newFindConfig(opts)
	)
	err := r.store.View(ctx, func(tx graph.Tx) error {
		root, ok := tx.GetRoot(uid)
		if !ok || root.Entity != r.def.Entity {
			return domain.NotFoundError{Entity: r.def.Entity, UID: uid}
		}
		if root.Deleted && !cfg.includeDeleted {
			return domain.NotFoundError{Entity: r.def.Entity, UID: uid}
		}
		edges, err := tx.VersionEdges(uid)
		if err != nil {
			return err
		}
		edge, ok := cfg.selectEdge(edges)
		if !ok {
			return domain.NotFoundError{Entity: r.def.Entity, UID: uid, Filter: cfg.describe()}
		}
		out, err = r.loadAggregate(tx, root, edge)
		return err
	})
	if err != nil {
		var zero A
		return zero, err
	}
	return out, nil
}

// List returns the latest version of every non-deleted root of the
// repository's entity type, ordered by uid.
func (r *Repository[A]) List(ctx context.Context) ([]A, error) {
	var out []A
	err := r.store.View(ctx, func(tx graph.Tx) error {
		for _, uid := range tx.RootUIDs(r.def.Entity) {
			root, ok := tx.GetRoot(uid)
			if !ok || root.Deleted {
				continue
			}
			edges, err := tx.VersionEdges(uid)
			if err != nil {
				return err
			}
			if len(edges) == 0 {
				continue
			}
			agg, err := r.loadAggregate(tx, root, edges[len(edges)-1])
			if err != nil {
				return err
			}
			out = append(out, agg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindUIDsByProperty returns the uids of roots whose latest value carries
// property == value. With activeOnly set, soft-deleted and retired roots
// are skipped. Used by uniqueness rules and lookup endpoints.
func (r *Repository[A]) FindUIDsByProperty(ctx context.Context, property, value string, activeOnly bool) ([]string, error) {
	var uids []string
	err := r.store.View(ctx, func(tx graph.Tx) error {
		var err error
		uids, err = tx.FindRootsByProperty(r.def.Entity, property, value, activeOnly)
		return err
	})
	if err != nil {
		return nil, err
	}
	return uids, nil
}

// ExistsBy reports whether any root's latest value carries property ==
// value, along with the matching uids.
func (r *Repository[A]) ExistsBy(ctx context.Context, property, value string, activeOnly bool) (bool, []string, error) {
	uids, err := r.FindUIDsByProperty(ctx, property, value, activeOnly)
	if err != nil {
		return false, nil, err
	}
	return len(uids) > 0, uids, nil
}

// VersionHistory returns the full audit trail of a root, oldest first,
// including versions of soft-deleted roots.
func (r *Repository[A]) VersionHistory(ctx context.Context, uid string) ([]domain.VersionRecord, error) {
	var records []domain.VersionRecord
	err := r.store.View(ctx, func(tx graph.Tx) error {
		root, ok := tx.GetRoot(uid)
		if !ok || root.Entity != r.def.Entity {
			return domain.NotFoundError{Entity: r.def.Entity, UID: uid}
		}
		edges, err := tx.VersionEdges(uid)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			records = append(records, domain.VersionRecord{
				Version:           edge.Version,
				Status:            edge.Status,
				StartDate:         edge.StartDate,
				EndDate:           edge.EndDate,
				AuthorID:          edge.AuthorID,
				ChangeDescription: edge.ChangeDescription,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Save persists edited field data of a draft aggregate. If the new content
// is identical to the stored value, the save is a no-op and the loaded
// aggregate is returned unchanged: no new version, no new edges. Otherwise
// the current draft edge is closed and a new one appended with a bumped
// version number, and inbound references from draft parents are rewired to
// the new value.
func (r *Repository[A]) Save(ctx context.Context, agg A) (A, error) {
	var saved A
	_, err := r.store.RunInTransaction(ctx, func(tx graph.Tx) error {
		item := agg.Item()
		root, latest, err := r.currentHead(tx, item.UID)
		if err != nil {
			return err
		}
		props, subs, refs, err := r.def.Encode(agg)
		if err != nil {
			return err
		}
		// The content diff decides first: saving field data the head
		// already carries is a no-op whatever the head's status, so
		// callers may save speculatively.
		newID := graph.ValueID(r.def.Entity, props, subs, refs)
		if newID == latest.ValueID {
			saved, err = r.loadAggregate(tx, root, latest)
			return err
		}
		if latest.Version != item.Version || latest.Status != item.Status {
			return domain.ConcurrentModificationError{Entity: r.def.Entity, UID: item.UID}
		}
		if _, err := domain.CheckTransition(latest.Status, domain.LifecycleEdit); err != nil {
			return err
		}
		if err := r.requireEditableLibrary(tx, root.Library); err != nil {
			return err
		}
		before, err := r.loadAggregate(tx, root, latest)
		if err != nil {
			return err
		}
		value, err := tx.PutValue(graph.ValueRecord{ID: newID, Entity: r.def.Entity, Props: props, SubValues: subs})
		if err != nil {
			return err
		}
		now := r.nowFn()
		if err := tx.CloseVersionEdge(item.UID, now); err != nil {
			return err
		}
		edge := graph.VersionEdgeRecord{
			RootUID:           item.UID,
			Entity:            r.def.Entity,
			ValueID:           value.ID,
			Version:           r.policy.NextDraft(latest.Version, latest.Status),
			Status:            domain.StatusDraft,
			StartDate:         now,
			AuthorID:          item.AuthorID,
			ChangeDescription: item.ChangeDescription,
		}
		if err := tx.AppendVersionEdge(edge); err != nil {
			return err
		}
		if err := r.writeRefEdges(tx, value.ID, refs); err != nil {
			return err
		}
		if err := rewireInbound(tx, latest.ValueID, value.ID); err != nil {
			return err
		}
		saved, err = r.loadAggregate(tx, root, edge)
		if err != nil {
			return err
		}
		return r.recordUpdate(tx, item.UID, before, saved)
	})
	if err != nil {
		var zero A
		return zero, err
	}
	return saved, nil
}

// Approve promotes the latest draft to a final version (next whole major
// under the standard policy). The value node is shared between the draft
// and final edges; no field data is copied.
func (r *Repository[A]) Approve(ctx context.Context, uid, authorID, changeDescription string) (A, error) {
	return r.transition(ctx, uid, authorID, changeDescription, domain.LifecycleApprove,
		func(current graph.VersionEdgeRecord) domain.Version {
			return r.policy.NextFinal(current.Version)
		})
}

// Retire inactivates the latest final version. The version number is
// carried over unchanged; only the status track advances.
func (r *Repository[A]) Retire(ctx context.Context, uid, authorID, changeDescription string) (A, error) {
	return r.transition(ctx, uid, authorID, changeDescription, domain.LifecycleRetire,
		func(current graph.VersionEdgeRecord) domain.Version {
			return current.Version
		})
}

// Reactivate restores a retired version to final, keeping its number.
func (r *Repository[A]) Reactivate(ctx context.Context, uid, authorID, changeDescription string) (A, error) {
	return r.transition(ctx, uid, authorID, changeDescription, domain.LifecycleReactivate,
		func(current graph.VersionEdgeRecord) domain.Version {
			return current.Version
		})
}

// NewDraft opens the next draft lineage over a final version (1.0 -> 1.1
// draft under the standard policy), sharing the final's value node until
// the first edit produces new content.
func (r *Repository[A]) NewDraft(ctx context.Context, uid, authorID, changeDescription string) (A, error) {
	return r.transition(ctx, uid, authorID, changeDescription, domain.LifecycleNewDraft,
		func(current graph.VersionEdgeRecord) domain.Version {
			return r.policy.NextDraft(current.Version, current.Status)
		})
}

// SoftDelete removes a draft-only root from every default query. The root,
// its values and its history remain in the graph for audit. Deleting a
// root whose latest version is not a draft is rejected.
func (r *Repository[A]) SoftDelete(ctx context.Context, uid string) error {
	_, err := r.store.RunInTransaction(ctx, func(tx graph.Tx) error {
		root, ok := tx.GetRoot(uid)
		if !ok || root.Entity != r.def.Entity || root.Deleted {
			return domain.NotFoundError{Entity: r.def.Entity, UID: uid}
		}
		edges, err := tx.VersionEdges(uid)
		if err != nil {
			return err
		}
		if len(edges) == 0 {
			return domain.IntegrityError{Msg: fmt.Sprintf("root %s has no version edges", uid)}
		}
		latest := edges[len(edges)-1]
		if _, err := domain.CheckTransition(latest.Status, domain.LifecycleDelete); err != nil {
			return err
		}
		before, err := r.loadAggregate(tx, root, latest)
		if err != nil {
			return err
		}
		if latest.Open() {
			if err := tx.CloseVersionEdge(uid, r.nowFn()); err != nil {
				return err
			}
		}
		if err := tx.MarkRootDeleted(uid); err != nil {
			return err
		}
		payload, err := domain.NewChangePayloadFromValue(before)
		if err != nil {
			return err
		}
		tx.RecordChange(domain.Change{
			Entity: r.def.Entity,
			UID:    uid,
			Action: domain.ActionDelete,
			Before: payload,
			After:  domain.UndefinedChangePayload(),
		})
		return nil
	})
	return err
}

// transition executes one status-only lifecycle step: close the open edge,
// append a new edge to the same value node with the next status.
func (r *Repository[A]) transition(
	ctx context.Context,
	uid, authorID, changeDescription string,
	action domain.LifecycleAction,
	nextVersion func(current graph.VersionEdgeRecord) domain.Version,
) (A, error) {
	var out A
	_, err := r.store.RunInTransaction(ctx, func(tx graph.Tx) error {
		root, ok := tx.GetRoot(uid)
		if !ok || root.Entity != r.def.Entity || root.Deleted {
			return domain.NotFoundError{Entity: r.def.Entity, UID: uid}
		}
		if err := r.requireEditableLibrary(tx, root.Library); err != nil {
			return err
		}
		edges, err := tx.VersionEdges(uid)
		if err != nil {
			return err
		}
		if len(edges) == 0 {
			return domain.IntegrityError{Msg: fmt.Sprintf("root %s has no version edges", uid)}
		}
		latest := edges[len(edges)-1]
		status, err := domain.CheckTransition(latest.Status, action)
		if err != nil {
			return err
		}
		before, err := r.loadAggregate(tx, root, latest)
		if err != nil {
			return err
		}
		now := r.nowFn()
		if err := tx.CloseVersionEdge(uid, now); err != nil {
			return err
		}
		edge := graph.VersionEdgeRecord{
			RootUID:           uid,
			Entity:            r.def.Entity,
			ValueID:           latest.ValueID,
			Version:           nextVersion(latest),
			Status:            status,
			StartDate:         now,
			AuthorID:          authorID,
			ChangeDescription: changeDescription,
		}
		if err := tx.AppendVersionEdge(edge); err != nil {
			return err
		}
		out, err = r.loadAggregate(tx, root, edge)
		if err != nil {
			return err
		}
		return r.recordUpdate(tx, uid, before, out)
	})
	if err != nil {
		var zero A
		return zero, err
	}
	return out, nil
}

// currentHead loads a live root and its latest version edge for a write.
// Writers compare the caller's aggregate against the returned edge: a
// version or status mismatch on a real change means another writer
// advanced the root since the load.
func (r *Repository[A]) currentHead(tx graph.Tx, uid string) (graph.RootRecord, graph.VersionEdgeRecord, error) {
	root, ok := tx.GetRoot(uid)
	if !ok || root.Entity != r.def.Entity || root.Deleted {
		return graph.RootRecord{}, graph.VersionEdgeRecord{}, domain.NotFoundError{Entity: r.def.Entity, UID: uid}
	}
	edges, err := tx.VersionEdges(uid)
	if err != nil {
		return graph.RootRecord{}, graph.VersionEdgeRecord{}, err
	}
	if len(edges) == 0 {
		return graph.RootRecord{}, graph.VersionEdgeRecord{}, domain.IntegrityError{Msg: fmt.Sprintf("root %s has no version edges", uid)}
	}
	return root, edges[len(edges)-1], nil
}

func (r *Repository[A]) requireEditableLibrary(tx graph.Tx, name string) error {
	lib, ok := tx.GetLibrary(name)
	if !ok {
		return domain.BusinessRuleError{Msg: fmt.Sprintf("Library %s does not exist", name)}
	}
	if !lib.Editable {
		return domain.BusinessRuleError{Msg: fmt.Sprintf("Library %s is not editable", name)}
	}
	return nil
}

// putEncodedValue encodes the aggregate and writes (or reuses) its
// content-addressed value node plus reference edges.
func (r *Repository[A]) putEncodedValue(tx graph.Tx, agg A) (graph.ValueRecord, error) {
	props, subs, refs, err := r.def.Encode(agg)
	if err != nil {
		return graph.ValueRecord{}, err
	}
	value, err := tx.PutValue(graph.NewValue(r.def.Entity, props, subs, refs))
	if err != nil {
		return graph.ValueRecord{}, err
	}
	if err := r.writeRefEdges(tx, value.ID, refs); err != nil {
		return graph.ValueRecord{}, err
	}
	return value, nil
}

// writeRefEdges materializes reference specs as edges from the value node
// to the latest value of each target root. A reused value node keeps its
// existing edges: equal content addresses imply equal reference specs.
func (r *Repository[A]) writeRefEdges(tx graph.Tx, valueID string, refs []graph.RefSpec) error {
	if len(refs) == 0 {
		return nil
	}
	existing, err := tx.OutgoingRefs(valueID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, spec := range refs {
		target, ok := tx.GetRoot(spec.TargetUID)
		if !ok || target.Deleted {
			return domain.BusinessRuleError{Msg: fmt.Sprintf("Referenced item %s does not exist", spec.TargetUID)}
		}
		targetEdges, err := tx.VersionEdges(spec.TargetUID)
		if err != nil {
			return err
		}
		if len(targetEdges) == 0 {
			return domain.IntegrityError{Msg: fmt.Sprintf("root %s has no version edges", spec.TargetUID)}
		}
		targetValue := targetEdges[len(targetEdges)-1].ValueID
		if _, err := tx.CreateRefEdge(graph.RefEdgeRecord{
			Type:          spec.Type,
			SourceValueID: valueID,
			TargetRootUID: spec.TargetUID,
			TargetValueID: targetValue,
			Position:      spec.Position,
			Props:         spec.Props,
		}); err != nil {
			return err
		}
	}
	return nil
}

// loadAggregate reconstructs the aggregate visible through one version edge.
func (r *Repository[A]) loadAggregate(tx graph.Tx, root graph.RootRecord, edge graph.VersionEdgeRecord) (A, error) {
	var zero A
	value, ok := tx.GetValue(edge.ValueID)
	if !ok {
		return zero, domain.IntegrityError{Msg: fmt.Sprintf("value %s of root %s missing", edge.ValueID, root.UID)}
	}
	refs, err := tx.OutgoingRefs(edge.ValueID)
	if err != nil {
		return zero, err
	}
	item := domain.LibraryItem{
		UID:               root.UID,
		Library:           root.Library,
		Status:            edge.Status,
		Version:           edge.Version,
		StartDate:         edge.StartDate,
		EndDate:           edge.EndDate,
		AuthorID:          edge.AuthorID,
		ChangeDescription: edge.ChangeDescription,
		Deleted:           root.Deleted,
	}
	return r.def.Decode(item, value, refs)
}

func (r *Repository[A]) recordUpdate(tx graph.Tx, uid string, before, after A) error {
	beforePayload, err := domain.NewChangePayloadFromValue(before)
	if err != nil {
		return err
	}
	afterPayload, err := domain.NewChangePayloadFromValue(after)
	if err != nil {
		return err
	}
	tx.RecordChange(domain.Change{
		Entity: r.def.Entity,
		UID:    uid,
		Action: domain.ActionUpdate,
		Before: beforePayload,
		After:  afterPayload,
	})
	return nil
}
