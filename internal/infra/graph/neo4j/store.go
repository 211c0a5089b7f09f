// Package neo4j implements the graph store contract directly against a
// Neo4j server. Layout:
//
//	(l:Library {name, is_editable})
//	(l)-[:CONTAINS]->(r:Root {uid, entity, library, deleted})
//	(r)-[hv:HAS_VERSION {version, status, start_date, end_date, author_id, change_description}]->(v:Value {id, entity, ...props})
//	(v)-[:HAS_SUB_VALUE]->(sv:SubValue {id, kind, ...props})
//	(v)-[ref:REF {id, type, target_root_uid, position, props_json}]->(v2:Value)
//	(c:Counter {entity, count})
//
// Value and sub-value properties are scalar by construction, so they live
// flat on the nodes; "id" and "entity" are reserved keys.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"

	"encoding/json"
)

// Compile-time contract assertion.
var _ graph.Store = (*Store)(nil)

// Store is a Neo4j-backed graph store. Every RunInTransaction call maps to
// one managed write transaction, so a failed save rolls back wholesale and
// the previous latest version edge stays visible to readers.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	engine   *domain.RulesEngine
	nowFn    func() time.Time
}

// Config carries connection settings for NewStore.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewStore connects to Neo4j, verifies connectivity, and ensures the
// uniqueness constraints the store relies on.
func NewStore(ctx context.Context, cfg Config, engine *domain.RulesEngine) (*Store, error) {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("open neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	s := &Store{
		driver:   driver,
		database: cfg.Database,
		engine:   engine,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	if err := s.ensureConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureConstraints(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() { _ = session.Close(ctx) }()
	for _, stmt := range []string{
		`CREATE CONSTRAINT root_uid IF NOT EXISTS FOR (r:Root) REQUIRE r.uid IS UNIQUE`,
		`CREATE CONSTRAINT value_id IF NOT EXISTS FOR (v:Value) REQUIRE v.id IS UNIQUE`,
		`CREATE CONSTRAINT sub_value_id IF NOT EXISTS FOR (sv:SubValue) REQUIRE sv.id IS UNIQUE`,
		`CREATE CONSTRAINT library_name IF NOT EXISTS FOR (l:Library) REQUIRE l.name IS UNIQUE`,
		`CREATE CONSTRAINT counter_entity IF NOT EXISTS FOR (c:Counter) REQUIRE c.entity IS UNIQUE`,
	} {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure constraint: %w", err)
		}
	}
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// RunInTransaction executes fn and the rules engine inside one managed
// write transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx graph.Tx) error) (domain.Result, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() { _ = session.Close(ctx) }()

	var result domain.Result
	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		tx := &neoTx{ctx: ctx, tx: mtx}
		if err := fn(tx); err != nil {
			return nil, err
		}
		if s.engine != nil {
			res, err := s.engine.Evaluate(ctx, neoRuleView{tx: tx}, tx.changes)
			if err != nil {
				return nil, err
			}
			result = res
			if res.HasBlocking() {
				return nil, domain.RuleViolationError{Result: res}
			}
		}
		return nil, nil
	})
	if err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

// View executes fn inside a managed read transaction.
func (s *Store) View(ctx context.Context, fn func(tx graph.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer func() { _ = session.Close(ctx) }()
	_, err := session.ExecuteRead(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neoTx{ctx: ctx, tx: mtx, readOnly: true})
	})
	return err
}

// PruneOrphanValues deletes value nodes with no version or reference edge,
// then sub-values no longer attached to any value.
func (s *Store) PruneOrphanValues(ctx context.Context) (int, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer func() { _ = session.Close(ctx) }()

	count, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		res, err := mtx.Run(ctx, `
			MATCH (v:Value)
			WHERE NOT ()-[:HAS_VERSION]->(v) AND NOT ()-[:REF]->(v)
			DETACH DELETE v
			RETURN count(v) AS pruned`, nil)
		if err != nil {
			return 0, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return 0, err
		}
		pruned, _ := record.Get("pruned")
		if _, err := mtx.Run(ctx, `
			MATCH (sv:SubValue)
			WHERE NOT ()-[:HAS_SUB_VALUE]->(sv)
			DETACH DELETE sv`, nil); err != nil {
			return 0, err
		}
		return pruned, nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune orphan values: %w", err)
	}
	n, _ := count.(int64)
	return int(n), nil
}

// Close shuts down the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

// neoTx implements graph.Tx over a managed Neo4j transaction.
type neoTx struct {
	ctx      context.Context
	tx       neo4j.ManagedTransaction
	changes  []domain.Change
	readOnly bool
}

func (t *neoTx) guardWrite() error {
	if t.readOnly {
		return graph.ErrReadOnly
	}
	return nil
}

func (t *neoTx) run(query string, params map[string]any) (neo4j.ResultWithContext, error) {
	return t.tx.Run(t.ctx, query, params)
}

func (t *neoTx) EnsureLibrary(lib domain.Library) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	_, err := t.run(`
		MERGE (l:Library {name: $name})
		ON CREATE SET l.is_editable = $editable`,
		map[string]any{"name": lib.Name, "editable": lib.Editable})
	if err != nil {
		return fmt.Errorf("ensure library: %w", err)
	}
	return nil
}

func (t *neoTx) GetLibrary(name string) (domain.Library, bool) {
	res, err := t.run(`
		MATCH (l:Library {name: $name})
		RETURN l.name AS name, l.is_editable AS editable`,
		map[string]any{"name": name})
	if err != nil {
		return domain.Library{}, false
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return domain.Library{}, false
	}
	return domain.Library{
		Name:     recString(record, "name"),
		Editable: recBool(record, "editable"),
	}, true
}

func (t *neoTx) CreateRoot(root graph.RootRecord) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	res, err := t.run(`
		MATCH (l:Library {name: $library})
		CREATE (r:Root {uid: $uid, entity: $entity, library: $library, deleted: false})
		CREATE (l)-[:CONTAINS]->(r)
		RETURN r.uid AS uid`,
		map[string]any{"uid": root.UID, "entity": string(root.Entity), "library": root.Library})
	if err != nil {
		return fmt.Errorf("create root: %w", err)
	}
	if _, err := res.Single(t.ctx); err != nil {
		return domain.IntegrityError{Msg: fmt.Sprintf("library %s does not exist", root.Library)}
	}
	return nil
}

func (t *neoTx) GetRoot(uid string) (graph.RootRecord, bool) {
	res, err := t.run(`
		MATCH (r:Root {uid: $uid})
		RETURN r.uid AS uid, r.entity AS entity, r.library AS library, r.deleted AS deleted`,
		map[string]any{"uid": uid})
	if err != nil {
		return graph.RootRecord{}, false
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return graph.RootRecord{}, false
	}
	return graph.RootRecord{
		UID:     recString(record, "uid"),
		Entity:  domain.EntityType(recString(record, "entity")),
		Library: recString(record, "library"),
		Deleted: recBool(record, "deleted"),
	}, true
}

func (t *neoTx) MarkRootDeleted(uid string) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	res, err := t.run(`
		MATCH (r:Root {uid: $uid})
		SET r.deleted = true
		RETURN r.uid AS uid`,
		map[string]any{"uid": uid})
	if err != nil {
		return fmt.Errorf("mark root deleted: %w", err)
	}
	if _, err := res.Single(t.ctx); err != nil {
		return domain.IntegrityError{Msg: fmt.Sprintf("root %s does not exist", uid)}
	}
	return nil
}

func (t *neoTx) RootUIDs(entity domain.EntityType) []string {
	res, err := t.run(`
		MATCH (r:Root {entity: $entity})
		RETURN r.uid AS uid ORDER BY uid`,
		map[string]any{"entity": string(entity)})
	if err != nil {
		return nil
	}
	var uids []string
	for res.Next(t.ctx) {
		uids = append(uids, recString(res.Record(), "uid"))
	}
	return uids
}

func (t *neoTx) NextCounter(entity domain.EntityType) (int64, error) {
	if err := t.guardWrite(); err != nil {
		return 0, err
	}
	res, err := t.run(`
		MERGE (c:Counter {entity: $entity})
		ON CREATE SET c.count = 0
		SET c.count = c.count + 1
		RETURN c.count AS count`,
		map[string]any{"entity": string(entity)})
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	count, _ := record.Get("count")
	n, ok := count.(int64)
	if !ok {
		return 0, domain.IntegrityError{Msg: fmt.Sprintf("counter for %s holds non-integer", entity)}
	}
	return n, nil
}

func (t *neoTx) PutValue(value graph.ValueRecord) (graph.ValueRecord, error) {
	if err := t.guardWrite(); err != nil {
		return graph.ValueRecord{}, err
	}
	props := map[string]any{}
	for k, v := range value.Props {
		props[k] = v
	}
	_, err := t.run(`
		MERGE (v:Value {id: $id})
		ON CREATE SET v.entity = $entity, v += $props`,
		map[string]any{"id": value.ID, "entity": string(value.Entity), "props": props})
	if err != nil {
		return graph.ValueRecord{}, fmt.Errorf("put value: %w", err)
	}
	for _, sv := range value.SubValues {
		svProps := map[string]any{}
		for k, v := range sv.Props {
			svProps[k] = v
		}
		if _, err := t.run(`
			MATCH (v:Value {id: $value_id})
			MERGE (sv:SubValue {id: $id})
			ON CREATE SET sv.kind = $kind, sv += $props
			MERGE (v)-[:HAS_SUB_VALUE]->(sv)`,
			map[string]any{"value_id": value.ID, "id": sv.ID, "kind": sv.Kind, "props": svProps}); err != nil {
			return graph.ValueRecord{}, fmt.Errorf("put sub-value: %w", err)
		}
	}
	return value, nil
}

func (t *neoTx) GetValue(id string) (graph.ValueRecord, bool) {
	res, err := t.run(`
		MATCH (v:Value {id: $id})
		OPTIONAL MATCH (v)-[:HAS_SUB_VALUE]->(sv:SubValue)
		RETURN v AS value, collect(sv) AS subs`,
		map[string]any{"id": id})
	if err != nil {
		return graph.ValueRecord{}, false
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return graph.ValueRecord{}, false
	}
	raw, _ := record.Get("value")
	node, ok := raw.(neo4j.Node)
	if !ok {
		return graph.ValueRecord{}, false
	}
	value := valueFromNode(node)
	rawSubs, _ := record.Get("subs")
	if subs, ok := rawSubs.([]any); ok {
		for _, rawSub := range subs {
			svNode, ok := rawSub.(neo4j.Node)
			if !ok {
				continue
			}
			value.SubValues = append(value.SubValues, subValueFromNode(svNode))
		}
	}
	return value, true
}

func valueFromNode(node neo4j.Node) graph.ValueRecord {
	value := graph.ValueRecord{Props: map[string]any{}}
	for k, v := range node.Props {
		switch k {
		case "id":
			value.ID, _ = v.(string)
		case "entity":
			entity, _ := v.(string)
			value.Entity = domain.EntityType(entity)
		default:
			value.Props[k] = v
		}
	}
	return value
}

func subValueFromNode(node neo4j.Node) graph.SubValueRecord {
	sv := graph.SubValueRecord{Props: map[string]any{}}
	for k, v := range node.Props {
		switch k {
		case "id":
			sv.ID, _ = v.(string)
		case "kind":
			sv.Kind, _ = v.(string)
		default:
			sv.Props[k] = v
		}
	}
	return sv
}

func (t *neoTx) VersionEdges(uid string) ([]graph.VersionEdgeRecord, error) {
	res, err := t.run(`
		MATCH (r:Root {uid: $uid})-[hv:HAS_VERSION]->(v:Value)
		RETURN r.uid AS uid, r.entity AS entity, v.id AS value_id,
		       hv.version AS version, hv.status AS status,
		       hv.start_date AS start_date, hv.end_date AS end_date,
		       hv.author_id AS author_id, hv.change_description AS change_description
		ORDER BY hv.start_date`,
		map[string]any{"uid": uid})
	if err != nil {
		return nil, fmt.Errorf("load version edges: %w", err)
	}
	var edges []graph.VersionEdgeRecord
	for res.Next(t.ctx) {
		edge, err := versionEdgeFromRecord(res.Record())
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, res.Err()
}

func versionEdgeFromRecord(record *neo4j.Record) (graph.VersionEdgeRecord, error) {
	version, err := domain.ParseVersion(recString(record, "version"))
	if err != nil {
		return graph.VersionEdgeRecord{}, domain.IntegrityError{Msg: err.Error()}
	}
	start, err := time.Parse(time.RFC3339Nano, recString(record, "start_date"))
	if err != nil {
		return graph.VersionEdgeRecord{}, domain.IntegrityError{Msg: "malformed start_date: " + err.Error()}
	}
	edge := graph.VersionEdgeRecord{
		RootUID:           recString(record, "uid"),
		Entity:            domain.EntityType(recString(record, "entity")),
		ValueID:           recString(record, "value_id"),
		Version:           version,
		Status:            domain.VersionStatus(recString(record, "status")),
		StartDate:         start,
		AuthorID:          recString(record, "author_id"),
		ChangeDescription: recString(record, "change_description"),
	}
	if raw := recString(record, "end_date"); raw != "" {
		end, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return graph.VersionEdgeRecord{}, domain.IntegrityError{Msg: "malformed end_date: " + err.Error()}
		}
		edge.EndDate = &end
	}
	return edge, nil
}

func (t *neoTx) AppendVersionEdge(edge graph.VersionEdgeRecord) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	res, err := t.run(`
		MATCH (r:Root {uid: $uid})
		WHERE NOT EXISTS {
			MATCH (r)-[open:HAS_VERSION]->()
			WHERE open.end_date IS NULL
		}
		MATCH (v:Value {id: $value_id})
		CREATE (r)-[:HAS_VERSION {
			version: $version, status: $status,
			start_date: $start_date, end_date: null,
			author_id: $author_id, change_description: $change_description
		}]->(v)
		RETURN r.uid AS uid`,
		map[string]any{
			"uid":                edge.RootUID,
			"value_id":           edge.ValueID,
			"version":            edge.Version.String(),
			"status":             string(edge.Status),
			"start_date":         edge.StartDate.UTC().Format(time.RFC3339Nano),
			"author_id":          edge.AuthorID,
			"change_description": edge.ChangeDescription,
		})
	if err != nil {
		return fmt.Errorf("append version edge: %w", err)
	}
	if _, err := res.Single(t.ctx); err != nil {
		return domain.IntegrityError{Msg: fmt.Sprintf("root %s missing, value missing, or open version edge present", edge.RootUID)}
	}
	return nil
}

func (t *neoTx) CloseVersionEdge(uid string, end time.Time) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	res, err := t.run(`
		MATCH (r:Root {uid: $uid})-[hv:HAS_VERSION]->()
		WHERE hv.end_date IS NULL
		SET hv.end_date = $end
		RETURN count(hv) AS closed`,
		map[string]any{"uid": uid, "end": end.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("close version edge: %w", err)
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return fmt.Errorf("close version edge: %w", err)
	}
	closed, _ := record.Get("closed")
	if n, _ := closed.(int64); n == 0 {
		return domain.IntegrityError{Msg: fmt.Sprintf("root %s has no open version edge to close", uid)}
	}
	return nil
}

func (t *neoTx) CreateRefEdge(edge graph.RefEdgeRecord) (graph.RefEdgeRecord, error) {
	if err := t.guardWrite(); err != nil {
		return graph.RefEdgeRecord{}, err
	}
	if edge.ID == "" {
		edge.ID = newEdgeID()
	}
	propsJSON, err := json.Marshal(edge.Props)
	if err != nil {
		return graph.RefEdgeRecord{}, fmt.Errorf("encode ref props: %w", err)
	}
	res, err := t.run(`
		MATCH (s:Value {id: $source}), (g:Value {id: $target})
		CREATE (s)-[:REF {
			id: $id, type: $type, target_root_uid: $target_root_uid,
			position: $position, props_json: $props_json
		}]->(g)
		RETURN $id AS id`,
		map[string]any{
			"source":          edge.SourceValueID,
			"target":          edge.TargetValueID,
			"id":              edge.ID,
			"type":            edge.Type,
			"target_root_uid": edge.TargetRootUID,
			"position":        edge.Position,
			"props_json":      string(propsJSON),
		})
	if err != nil {
		return graph.RefEdgeRecord{}, fmt.Errorf("create ref edge: %w", err)
	}
	if _, err := res.Single(t.ctx); err != nil {
		return graph.RefEdgeRecord{}, domain.IntegrityError{Msg: "reference endpoint value missing"}
	}
	return edge, nil
}

func (t *neoTx) DeleteRefEdge(id string) error {
	if err := t.guardWrite(); err != nil {
		return err
	}
	res, err := t.run(`
		MATCH ()-[ref:REF {id: $id}]->()
		DELETE ref
		RETURN count(ref) AS deleted`,
		map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete ref edge: %w", err)
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return fmt.Errorf("delete ref edge: %w", err)
	}
	deleted, _ := record.Get("deleted")
	if n, _ := deleted.(int64); n == 0 {
		return domain.IntegrityError{Msg: fmt.Sprintf("reference edge %s does not exist", id)}
	}
	return nil
}

func (t *neoTx) IncomingRefs(valueID string) ([]graph.RefEdgeRecord, error) {
	return t.refs(`
		MATCH (s:Value)-[ref:REF]->(g:Value {id: $id})
		RETURN ref.id AS id, ref.type AS type, s.id AS source, g.id AS target,
		       ref.target_root_uid AS target_root_uid, ref.position AS position,
		       ref.props_json AS props_json
		ORDER BY ref.type, ref.position, ref.id`, valueID)
}

func (t *neoTx) OutgoingRefs(valueID string) ([]graph.RefEdgeRecord, error) {
	return t.refs(`
		MATCH (s:Value {id: $id})-[ref:REF]->(g:Value)
		RETURN ref.id AS id, ref.type AS type, s.id AS source, g.id AS target,
		       ref.target_root_uid AS target_root_uid, ref.position AS position,
		       ref.props_json AS props_json
		ORDER BY ref.type, ref.position, ref.id`, valueID)
}

func (t *neoTx) refs(query, valueID string) ([]graph.RefEdgeRecord, error) {
	res, err := t.run(query, map[string]any{"id": valueID})
	if err != nil {
		return nil, fmt.Errorf("load reference edges: %w", err)
	}
	var edges []graph.RefEdgeRecord
	for res.Next(t.ctx) {
		record := res.Record()
		edge := graph.RefEdgeRecord{
			ID:            recString(record, "id"),
			Type:          recString(record, "type"),
			SourceValueID: recString(record, "source"),
			TargetValueID: recString(record, "target"),
			TargetRootUID: recString(record, "target_root_uid"),
			Position:      int(recInt(record, "position")),
		}
		if raw := recString(record, "props_json"); raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &edge.Props); err != nil {
				return nil, domain.IntegrityError{Msg: "malformed reference edge props: " + err.Error()}
			}
		}
		edges = append(edges, edge)
	}
	return edges, res.Err()
}

func (t *neoTx) ValueOwners(valueID string) ([]graph.VersionEdgeRecord, error) {
	res, err := t.run(`
		MATCH (r:Root)-[hv:HAS_VERSION]->(v:Value {id: $id})
		RETURN r.uid AS uid, r.entity AS entity, v.id AS value_id,
		       hv.version AS version, hv.status AS status,
		       hv.start_date AS start_date, hv.end_date AS end_date,
		       hv.author_id AS author_id, hv.change_description AS change_description
		ORDER BY r.uid, hv.start_date`,
		map[string]any{"id": valueID})
	if err != nil {
		return nil, fmt.Errorf("load value owners: %w", err)
	}
	var edges []graph.VersionEdgeRecord
	for res.Next(t.ctx) {
		edge, err := versionEdgeFromRecord(res.Record())
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, res.Err()
}

func (t *neoTx) FindRootsByProperty(entity domain.EntityType, property, value string, activeOnly bool) ([]string, error) {
	query := `
		MATCH (r:Root {entity: $entity})-[hv:HAS_VERSION]->(v:Value)
		WHERE hv.end_date IS NULL AND toString(v[$property]) = $value`
	if activeOnly {
		query += ` AND r.deleted = false AND hv.status <> 'Retired'`
	}
	query += `
		RETURN r.uid AS uid ORDER BY uid`
	res, err := t.run(query, map[string]any{
		"entity":   string(entity),
		"property": property,
		"value":    value,
	})
	if err != nil {
		return nil, fmt.Errorf("find roots by property: %w", err)
	}
	var uids []string
	for res.Next(t.ctx) {
		uids = append(uids, recString(res.Record(), "uid"))
	}
	return uids, res.Err()
}

func (t *neoTx) RecordChange(change domain.Change) {
	if t.readOnly {
		return
	}
	t.changes = append(t.changes, change)
}

// neoRuleView adapts the transaction to domain.RuleView for rule
// evaluation inside the same managed transaction.
type neoRuleView struct {
	tx *neoTx
}

func (v neoRuleView) ListRootUIDs(entity domain.EntityType) []string {
	return v.tx.RootUIDs(entity)
}

func (v neoRuleView) LatestProperty(uid, property string) (string, bool) {
	res, err := v.tx.run(`
		MATCH (r:Root {uid: $uid})-[hv:HAS_VERSION]->(val:Value)
		WHERE hv.end_date IS NULL
		RETURN toString(val[$property]) AS value`,
		map[string]any{"uid": uid, "property": property})
	if err != nil {
		return "", false
	}
	record, err := res.Single(v.tx.ctx)
	if err != nil {
		return "", false
	}
	raw, ok := record.Get("value")
	if !ok || raw == nil {
		return "", false
	}
	value, ok := raw.(string)
	return value, ok
}

func (v neoRuleView) LatestStatus(uid string) (domain.VersionStatus, bool) {
	res, err := v.tx.run(`
		MATCH (r:Root {uid: $uid})-[hv:HAS_VERSION]->()
		WHERE hv.end_date IS NULL
		RETURN hv.status AS status`,
		map[string]any{"uid": uid})
	if err != nil {
		return "", false
	}
	record, err := res.Single(v.tx.ctx)
	if err != nil {
		return "", false
	}
	return domain.VersionStatus(recString(record, "status")), true
}

func (v neoRuleView) RootLibrary(uid string) (string, bool) {
	res, err := v.tx.run(`
		MATCH (r:Root {uid: $uid})
		RETURN r.library AS library`,
		map[string]any{"uid": uid})
	if err != nil {
		return "", false
	}
	record, err := res.Single(v.tx.ctx)
	if err != nil {
		return "", false
	}
	return recString(record, "library"), true
}

func (v neoRuleView) RootDeleted(uid string) bool {
	res, err := v.tx.run(`
		MATCH (r:Root {uid: $uid})
		RETURN r.deleted AS deleted`,
		map[string]any{"uid": uid})
	if err != nil {
		return false
	}
	record, err := res.Single(v.tx.ctx)
	if err != nil {
		return false
	}
	return recBool(record, "deleted")
}

func recString(record *neo4j.Record, key string) string {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func recBool(record *neo4j.Record, key string) bool {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		return false
	}
	b, _ := raw.(bool)
	return b
}

func recInt(record *neo4j.Record, key string) int64 {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		return 0
	}
	n, _ := raw.(int64)
	return n
}
