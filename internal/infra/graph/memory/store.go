// Package memory provides the in-memory implementation of the graph store
// used for tests, ephemeral environments, and as the transactional engine
// behind the snapshotting sqlite and postgres backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// Compile-time contract assertion.
var _ graph.Store = (*Store)(nil)

type memoryState struct {
	libraries    map[string]domain.Library
	roots        map[string]graph.RootRecord
	values       map[string]graph.ValueRecord
	versionEdges map[string][]graph.VersionEdgeRecord
	refEdges     map[string]graph.RefEdgeRecord
	counters     map[domain.EntityType]int64
}

// Snapshot captures a point-in-time clone of the store state for external
// persistence.
type Snapshot struct {
	Libraries    map[string]domain.Library            `json:"libraries"`
	Roots        map[string]graph.RootRecord          `json:"roots"`
	Values       map[string]graph.ValueRecord         `json:"values"`
	VersionEdges map[string][]graph.VersionEdgeRecord `json:"version_edges"`
	RefEdges     map[string]graph.RefEdgeRecord       `json:"reference_edges"`
	Counters     map[domain.EntityType]int64          `json:"counters"`
}

func newMemoryState() memoryState {
	return memoryState{
		libraries:    make(map[string]domain.Library),
		roots:        make(map[string]graph.RootRecord),
		values:       make(map[string]graph.ValueRecord),
		versionEdges: make(map[string][]graph.VersionEdgeRecord),
		refEdges:     make(map[string]graph.RefEdgeRecord),
		counters:     make(map[domain.EntityType]int64),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.libraries {
		cloned.libraries[k] = v
	}
	for k, v := range s.roots {
		cloned.roots[k] = v
	}
	for k, v := range s.values {
		cloned.values[k] = cloneValue(v)
	}
	for k, edges := range s.versionEdges {
		cloned.versionEdges[k] = append([]graph.VersionEdgeRecord(nil), edges...)
	}
	for k, v := range s.refEdges {
		cloned.refEdges[k] = cloneRefEdge(v)
	}
	for k, v := range s.counters {
		cloned.counters[k] = v
	}
	return cloned
}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return cp
}

func cloneValue(v graph.ValueRecord) graph.ValueRecord {
	cp := v
	cp.Props = cloneProps(v.Props)
	if v.SubValues != nil {
		cp.SubValues = make([]graph.SubValueRecord, len(v.SubValues))
		for i, sv := range v.SubValues {
			cp.SubValues[i] = graph.SubValueRecord{ID: sv.ID, Kind: sv.Kind, Props: cloneProps(sv.Props)}
		}
	}
	return cp
}

func cloneRefEdge(e graph.RefEdgeRecord) graph.RefEdgeRecord {
	cp := e
	cp.Props = cloneProps(e.Props)
	return cp
}

// Store is an in-memory transactional graph store. Transactions operate on
// a cloned state and swap it in atomically on commit, so a failed
// transaction leaves no visible effect.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules
// engine (nil for an engine with no rules).
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func newEdgeID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the configured engine for integration points.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider; tests use it to pin clocks.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func snapshotFromState(state memoryState) Snapshot {
	snap := Snapshot{
		Libraries:    make(map[string]domain.Library, len(state.libraries)),
		Roots:        make(map[string]graph.RootRecord, len(state.roots)),
		Values:       make(map[string]graph.ValueRecord, len(state.values)),
		VersionEdges: make(map[string][]graph.VersionEdgeRecord, len(state.versionEdges)),
		RefEdges:     make(map[string]graph.RefEdgeRecord, len(state.refEdges)),
		Counters:     make(map[domain.EntityType]int64, len(state.counters)),
	}
	for k, v := range state.libraries {
		snap.Libraries[k] = v
	}
	for k, v := range state.roots {
		snap.Roots[k] = v
	}
	for k, v := range state.values {
		snap.Values[k] = cloneValue(v)
	}
	for k, edges := range state.versionEdges {
		snap.VersionEdges[k] = append([]graph.VersionEdgeRecord(nil), edges...)
	}
	for k, v := range state.refEdges {
		snap.RefEdges[k] = cloneRefEdge(v)
	}
	for k, v := range state.counters {
		snap.Counters[k] = v
	}
	return snap
}

func stateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range snap.Libraries {
		state.libraries[k] = v
	}
	for k, v := range snap.Roots {
		state.roots[k] = v
	}
	for k, v := range snap.Values {
		state.values[k] = cloneValue(v)
	}
	for k, edges := range snap.VersionEdges {
		state.versionEdges[k] = append([]graph.VersionEdgeRecord(nil), edges...)
	}
	for k, v := range snap.RefEdges {
		state.refEdges[k] = cloneRefEdge(v)
	}
	for k, v := range snap.Counters {
		state.counters[k] = v
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from durable backends:
// missing buckets become empty maps, version edges are re-sorted by start
// date, and reference edges whose endpoints vanished are dropped.
func migrateSnapshot(snap Snapshot) Snapshot {
	if snap.Libraries == nil {
		snap.Libraries = map[string]domain.Library{}
	}
	if snap.Roots == nil {
		snap.Roots = map[string]graph.RootRecord{}
	}
	if snap.Values == nil {
		snap.Values = map[string]graph.ValueRecord{}
	}
	if snap.VersionEdges == nil {
		snap.VersionEdges = map[string][]graph.VersionEdgeRecord{}
	}
	if snap.RefEdges == nil {
		snap.RefEdges = map[string]graph.RefEdgeRecord{}
	}
	if snap.Counters == nil {
		snap.Counters = map[domain.EntityType]int64{}
	}

	for uid, edges := range snap.VersionEdges {
		if _, ok := snap.Roots[uid]; !ok {
			delete(snap.VersionEdges, uid)
			continue
		}
		sort.SliceStable(edges, func(i, j int) bool {
			return edges[i].StartDate.Before(edges[j].StartDate)
		})
		snap.VersionEdges[uid] = edges
	}

	for id, edge := range snap.RefEdges {
		if _, ok := snap.Values[edge.SourceValueID]; !ok {
			delete(snap.RefEdges, id)
			continue
		}
		if _, ok := snap.Values[edge.TargetValueID]; !ok {
			delete(snap.RefEdges, id)
		}
	}
	return snap
}

// transaction implements graph.Tx over a cloned state.
type transaction struct {
	state    *memoryState
	changes  []domain.Change
	now      time.Time
	readOnly bool
}

// RunInTransaction executes fn within a transactional copy of the store
// state, evaluates the rules engine over the recorded changes, and commits
// by swapping the state in. Transactions on one store serialize; the
// repository's latest-pointer check surfaces stale loads as
// ConcurrentModificationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx graph.Tx) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state.clone()
	tx := &transaction{state: &state, now: s.nowFn()}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := ruleView{state: &state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = state
	return result, nil
}

// View runs fn against a read-only snapshot of the state.
func (s *Store) View(_ context.Context, fn func(tx graph.Tx) error) error {
	s.mu.RLock()
	state := s.state.clone()
	s.mu.RUnlock()
	return fn(&transaction{state: &state, now: time.Now().UTC(), readOnly: true})
}

// PruneOrphanValues removes value nodes with no version edge and no
// reference edge pointing at them. Sub-values live inside their parent
// value records, so they vanish with the parent.
func (s *Store) PruneOrphanValues(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[string]struct{}, len(s.state.values))
	for _, edges := range s.state.versionEdges {
		for _, e := range edges {
			referenced[e.ValueID] = struct{}{}
		}
	}
	for _, e := range s.state.refEdges {
		referenced[e.SourceValueID] = struct{}{}
		referenced[e.TargetValueID] = struct{}{}
	}

	pruned := 0
	for id := range s.state.values {
		if _, ok := referenced[id]; !ok {
			delete(s.state.values, id)
			pruned++
		}
	}
	return pruned, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func (t *transaction) guardWrite() error {
	if t.readOnly {
		return graph.ErrReadOnly
	}
	return nil
}

// EnsureLibrary creates the library if absent; the editable flag of an
// existing library is left untouched.
func (t *transaction) EnsureLibrary(lib domain.Library) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	if _, ok := t.state.libraries[lib.Name]; ok {
		return nil
	}
	t.state.libraries[lib.Name] = lib
	return nil
}

func (t *transaction) GetLibrary(name string) (domain.Library, bool) {
	lib, ok := t.state.libraries[name]
	return lib, ok
}

func (t *transaction) CreateRoot(root graph.RootRecord) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	if _, ok := t.state.roots[root.UID]; ok {
		return domain.IntegrityError{Msg: fmt.Sprintf("root %s already exists", root.UID)}
	}
	if _, ok := t.state.libraries[root.Library]; !ok {
		return domain.IntegrityError{Msg: fmt.Sprintf("library %s does not exist", root.Library)}
	}
	t.state.roots[root.UID] = root
	return nil
}

func (t *transaction) GetRoot(uid string) (graph.RootRecord, bool) {
	root, ok := t.state.roots[uid]
	return root, ok
}

func (t *transaction) MarkRootDeleted(uid string) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	root, ok := t.state.roots[uid]
	if !ok {
		return domain.IntegrityError{Msg: fmt.Sprintf("root %s does not exist", uid)}
	}
	root.Deleted = true
	t.state.roots[uid] = root
	return nil
}

func (t *transaction) RootUIDs(entity domain.EntityType) []string {
	var uids []string
	for uid, root := range t.state.roots {
		if root.Entity == entity {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids
}

func (t *transaction) NextCounter(entity domain.EntityType) (int64, error) {
	if err := t.guardWrite(); err != nil {
		return 0, err
	}
	t.state.counters[entity]++
	return t.state.counters[entity], nil
}

func (t *transaction) PutValue(value graph.ValueRecord) (graph.ValueRecord, error) {
	if err := t.guardWrite(); err != nil {
		return graph.ValueRecord{}, err
	}
	if existing, ok := t.state.values[value.ID]; ok {
		return cloneValue(existing), nil
	}
	t.state.values[value.ID] = cloneValue(value)
	return value, nil
}

func (t *transaction) GetValue(id string) (graph.ValueRecord, bool) {
	value, ok := t.state.values[id]
	if !ok {
		return graph.ValueRecord{}, false
	}
	return cloneValue(value), true
}

func (t *transaction) VersionEdges(uid string) ([]graph.VersionEdgeRecord, error) {
	if _, ok := t.state.roots[uid]; !ok {
		return nil, nil
	}
	return append([]graph.VersionEdgeRecord(nil), t.state.versionEdges[uid]...), nil
}

func (t *transaction) AppendVersionEdge(edge graph.VersionEdgeRecord) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	if _, ok := t.state.roots[edge.RootUID]; !ok {
		return domain.IntegrityError{Msg: fmt.Sprintf("root %s does not exist", edge.RootUID)}
	}
	if _, ok := t.state.values[edge.ValueID]; !ok {
		return domain.IntegrityError{Msg: fmt.Sprintf("value %s does not exist", edge.ValueID)}
	}
	for _, existing := range t.state.versionEdges[edge.RootUID] {
		if existing.Open() {
			return domain.IntegrityError{Msg: fmt.Sprintf("root %s already has an open version edge", edge.RootUID)}
		}
	}
	t.state.versionEdges[edge.RootUID] = append(t.state.versionEdges[edge.RootUID], edge)
	return nil
}

func (t *transaction) CloseVersionEdge(uid string, end time.Time) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	edges := t.state.versionEdges[uid]
	for i := len(edges) - 1; i >= 0; i-- {
		if edges[i].Open() {
			endCopy := end
			edges[i].EndDate = &endCopy
			t.state.versionEdges[uid] = edges
			return nil
		}
	}
	return domain.IntegrityError{Msg: fmt.Sprintf("root %s has no open version edge to close", uid)}
}

func (t *transaction) CreateRefEdge(edge graph.RefEdgeRecord) (graph.RefEdgeRecord, error) {
	if err := t.guardWrite(); err != nil {
		return graph.RefEdgeRecord{}, err
	}
	if _, ok := t.state.values[edge.SourceValueID]; !ok {
		return graph.RefEdgeRecord{}, domain.IntegrityError{Msg: fmt.Sprintf("reference source value %s does not exist", edge.SourceValueID)}
	}
	if _, ok := t.state.values[edge.TargetValueID]; !ok {
		return graph.RefEdgeRecord{}, domain.IntegrityError{Msg: fmt.Sprintf("reference target value %s does not exist", edge.TargetValueID)}
	}
	if edge.ID == "" {
		edge.ID = newEdgeID()
	}
	t.state.refEdges[edge.ID] = cloneRefEdge(edge)
	return edge, nil
}

func (t *transaction) DeleteRefEdge(id string) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	if _, ok := t.state.refEdges[id]; !ok {
		return domain.IntegrityError{Msg: fmt.Sprintf("reference edge %s does not exist", id)}
	}
	delete(t.state.refEdges, id)
	return nil
}

func (t *transaction) IncomingRefs(valueID string) ([]graph.RefEdgeRecord, error) {
	var out []graph.RefEdgeRecord
	for _, edge := range t.state.refEdges {
		if edge.TargetValueID == valueID {
			out = append(out, cloneRefEdge(edge))
		}
	}
	sortRefEdges(out)
	return out, nil
}

func (t *transaction) OutgoingRefs(valueID string) ([]graph.RefEdgeRecord, error) {
	var out []graph.RefEdgeRecord
	for _, edge := range t.state.refEdges {
		if edge.SourceValueID == valueID {
			out = append(out, cloneRefEdge(edge))
		}
	}
	sortRefEdges(out)
	return out, nil
}

func sortRefEdges(edges []graph.RefEdgeRecord) {
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
}

func (t *transaction) ValueOwners(valueID string) ([]graph.VersionEdgeRecord, error) {
	var out []graph.VersionEdgeRecord
	for _, edges := range t.state.versionEdges {
		for _, e := range edges {
			if e.ValueID == valueID {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RootUID != out[j].RootUID {
			return out[i].RootUID < out[j].RootUID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (t *transaction) FindRootsByProperty(entity domain.EntityType, property, value string, activeOnly bool) ([]string, error) {
	var uids []string
	for uid, root := range t.state.roots {
		if root.Entity != entity {
			continue
		}
		if activeOnly && root.Deleted {
			continue
		}
		latest := latestEdge(t.state.versionEdges[uid])
		if latest == nil {
			continue
		}
		if activeOnly && latest.Status == domain.StatusRetired {
			continue
		}
		val, ok := t.state.values[latest.ValueID]
		if !ok {
			return nil, domain.IntegrityError{Msg: fmt.Sprintf("value %s missing for root %s", latest.ValueID, uid)}
		}
		if prop, ok := val.Props[property]; ok && fmt.Sprintf("%v", prop) == value {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids, nil
}

func (t *transaction) RecordChange(change domain.Change) {
	if t.readOnly {
		return
	}
	t.changes = append(t.changes, change)
}

// latestEdge returns the open edge, or the most recently started one when
// every edge has been closed.
func latestEdge(edges []graph.VersionEdgeRecord) *graph.VersionEdgeRecord {
	if len(edges) == 0 {
		return nil
	}
	for i := len(edges) - 1; i >= 0; i-- {
		if edges[i].Open() {
			return &edges[i]
		}
	}
	return &edges[len(edges)-1]
}

// ruleView adapts the transactional state to domain.RuleView.
type ruleView struct {
	state *memoryState
}

func (v ruleView) ListRootUIDs(entity domain.EntityType) []string {
	var uids []string
	for uid, root := range v.state.roots {
		if root.Entity == entity {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids
}

func (v ruleView) LatestProperty(uid, property string) (string, bool) {
	latest := latestEdge(v.state.versionEdges[uid])
	if latest == nil {
		return "", false
	}
	value, ok := v.state.values[latest.ValueID]
	if !ok {
		return "", false
	}
	prop, ok := value.Props[property]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", prop), true
}

func (v ruleView) LatestStatus(uid string) (domain.VersionStatus, bool) {
	latest := latestEdge(v.state.versionEdges[uid])
	if latest == nil {
		return "", false
	}
	return latest.Status, true
}

func (v ruleView) RootLibrary(uid string) (string, bool) {
	root, ok := v.state.roots[uid]
	if !ok {
		return "", false
	}
	return root.Library, true
}

func (v ruleView) RootDeleted(uid string) bool {
	root, ok := v.state.roots[uid]
	return ok && root.Deleted
}
