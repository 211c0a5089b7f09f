package repository

import (
	"sort"

	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

// EntityDef binds an aggregate type to its graph encoding: which fields are
// value props, which become sub-value nodes, and which become reference
// edges to other roots. The repository is generic over this definition.
type EntityDef[A domain.Aggregate] struct {
	Entity domain.EntityType

	// Encode splits the aggregate's field data into scalar props, content-
	// addressed sub-values, and outbound reference specs. Lifecycle fields
	// on the embedded item are ignored; they live on version edges.
	Encode func(a A) (props map[string]any, subs []graph.SubValueRecord, refs []graph.RefSpec, err error)

	// Decode rebuilds the aggregate from a value node, its outgoing
	// reference edges, and the lifecycle metadata of the version edge it
	// was reached through.
	Decode func(item domain.LibraryItem, value graph.ValueRecord, refs []graph.RefEdgeRecord) (A, error)
}

// FormDef returns the graph mapping for forms: descriptions and aliases as
// sub-values, item group membership as ordered reference edges, vendor
// attributes as an unordered reference set.
func FormDef() EntityDef[domain.Form] {
	return EntityDef[domain.Form]{
		Entity: domain.EntityForm,
		Encode: func(f domain.Form) (map[string]any, []graph.SubValueRecord, []graph.RefSpec, error) {
			props := map[string]any{
				"name":      f.Name,
				"oid":       f.OID,
				"repeating": f.Repeating,
			}
			var subs []graph.SubValueRecord
			subs = append(subs, descriptionSubValues(f.Descriptions)...)
			subs = append(subs, aliasSubValues(f.Aliases)...)
			var refs []graph.RefSpec
			for _, uid := range f.VendorAttributeUIDs {
				refs = append(refs, graph.RefSpec{Type: graph.RefVendorAttribute, TargetUID: uid})
			}
			for i, uid := range f.ItemGroupUIDs {
				refs = append(refs, graph.RefSpec{Type: graph.RefItemGroupRef, TargetUID: uid, Ordered: true, Position: i})
			}
			return props, subs, refs, nil
		},
		Decode: func(item domain.LibraryItem, value graph.ValueRecord, refs []graph.RefEdgeRecord) (domain.Form, error) {
			f := domain.Form{
				LibraryItem: item,
				Name:        propString(value.Props, "name"),
				OID:         propString(value.Props, "oid"),
				Repeating:   propBool(value.Props, "repeating"),
			}
			f.Descriptions = decodeDescriptions(value.SubValues)
			f.Aliases = decodeAliases(value.SubValues)
			for _, edge := range refsOfType(refs, graph.RefVendorAttribute) {
				f.VendorAttributeUIDs = append(f.VendorAttributeUIDs, edge.TargetRootUID)
			}
			sort.Strings(f.VendorAttributeUIDs)
			for _, edge := range refsOfType(refs, graph.RefItemGroupRef) {
				f.ItemGroupUIDs = append(f.ItemGroupUIDs, edge.TargetRootUID)
			}
			return f, nil
		},
	}
}

// StudyEventDef returns the graph mapping for study events: form references
// become ordered, metadata-carrying edges.
func StudyEventDef() EntityDef[domain.StudyEvent] {
	return EntityDef[domain.StudyEvent]{
		Entity: domain.EntityStudyEvent,
		Encode: func(e domain.StudyEvent) (map[string]any, []graph.SubValueRecord, []graph.RefSpec, error) {
			props := map[string]any{
				"name": e.Name,
				"oid":  e.OID,
			}
			var refs []graph.RefSpec
			for i, fr := range e.FormRefs {
				edgeProps := map[string]any{
					"order_number": fr.OrderNumber,
					"mandatory":    fr.Mandatory,
					"locked":       fr.Locked,
				}
				if fr.CollectionExceptionUID != "" {
					edgeProps["collection_exception_uid"] = fr.CollectionExceptionUID
				}
				refs = append(refs, graph.RefSpec{
					Type:      graph.RefFormRef,
					TargetUID: fr.FormUID,
					Ordered:   true,
					Position:  i,
					Props:     edgeProps,
				})
			}
			return props, nil, refs, nil
		},
		Decode: func(item domain.LibraryItem, value graph.ValueRecord, refs []graph.RefEdgeRecord) (domain.StudyEvent, error) {
			e := domain.StudyEvent{
				LibraryItem: item,
				Name:        propString(value.Props, "name"),
				OID:         propString(value.Props, "oid"),
			}
			for _, edge := range refsOfType(refs, graph.RefFormRef) {
				e.FormRefs = append(e.FormRefs, domain.FormRef{
					FormUID:                edge.TargetRootUID,
					OrderNumber:            propInt(edge.Props, "order_number"),
					Mandatory:              propBool(edge.Props, "mandatory"),
					Locked:                 propBool(edge.Props, "locked"),
					CollectionExceptionUID: propString(edge.Props, "collection_exception_uid"),
				})
			}
			return e, nil
		},
	}
}

// ConditionDef returns the graph mapping for collection-exception
// conditions: every collection is an unordered sub-value set.
func ConditionDef() EntityDef[domain.Condition] {
	return EntityDef[domain.Condition]{
		Entity: domain.EntityCondition,
		Encode: func(c domain.Condition) (map[string]any, []graph.SubValueRecord, []graph.RefSpec, error) {
			props := map[string]any{
				"name": c.Name,
				"oid":  c.OID,
			}
			var subs []graph.SubValueRecord
			for _, fe := range c.FormalExpressions {
				subs = append(subs, graph.NewSubValue(graph.SubValueExpression, map[string]any{
					"context":    fe.Context,
					"expression": fe.Expression,
				}))
			}
			subs = append(subs, descriptionSubValues(c.Descriptions)...)
			subs = append(subs, aliasSubValues(c.Aliases)...)
			return props, subs, nil, nil
		},
		Decode: func(item domain.LibraryItem, value graph.ValueRecord, refs []graph.RefEdgeRecord) (domain.Condition, error) {
			c := domain.Condition{
				LibraryItem: item,
				Name:        propString(value.Props, "name"),
				OID:         propString(value.Props, "oid"),
			}
			for _, sv := range value.SubValues {
				if sv.Kind != graph.SubValueExpression {
					continue
				}
				c.FormalExpressions = append(c.FormalExpressions, domain.FormalExpression{
					Context:    propString(sv.Props, "context"),
					Expression: propString(sv.Props, "expression"),
				})
			}
			sortExpressions(c.FormalExpressions)
			c.Descriptions = decodeDescriptions(value.SubValues)
			c.Aliases = decodeAliases(value.SubValues)
			return c, nil
		},
	}
}

// VendorAttributeDef returns the graph mapping for vendor extension
// attributes. All field data fits in scalar and array props.
func VendorAttributeDef() EntityDef[domain.VendorAttribute] {
	return EntityDef[domain.VendorAttribute]{
		Entity: domain.EntityVendorAttribute,
		Encode: func(a domain.VendorAttribute) (map[string]any, []graph.SubValueRecord, []graph.RefSpec, error) {
			types := append([]string(nil), a.CompatibleTypes...)
			sort.Strings(types)
			props := map[string]any{
				"name":             a.Name,
				"data_type":        a.DataType,
				"compatible_types": types,
			}
			if a.ValueRegex != "" {
				props["value_regex"] = a.ValueRegex
			}
			return props, nil, nil, nil
		},
		Decode: func(item domain.LibraryItem, value graph.ValueRecord, refs []graph.RefEdgeRecord) (domain.VendorAttribute, error) {
			return domain.VendorAttribute{
				LibraryItem:     item,
				Name:            propString(value.Props, "name"),
				DataType:        propString(value.Props, "data_type"),
				ValueRegex:      propString(value.Props, "value_regex"),
				CompatibleTypes: propStringSlice(value.Props, "compatible_types"),
			}, nil
		},
	}
}

func descriptionSubValues(descs []domain.Description) []graph.SubValueRecord {
	var subs []graph.SubValueRecord
	for _, d := range descs {
		props := map[string]any{
			"language":    d.Language,
			"description": d.Text,
		}
		if d.Instruction != "" {
			props["instruction"] = d.Instruction
		}
		subs = append(subs, graph.NewSubValue(graph.SubValueDescription, props))
	}
	return subs
}

func aliasSubValues(aliases []domain.Alias) []graph.SubValueRecord {
	var subs []graph.SubValueRecord
	for _, a := range aliases {
		subs = append(subs, graph.NewSubValue(graph.SubValueAlias, map[string]any{
			"context": a.Context,
			"name":    a.Name,
		}))
	}
	return subs
}

func decodeDescriptions(subs []graph.SubValueRecord) []domain.Description {
	var descs []domain.Description
	for _, sv := range subs {
		if sv.Kind != graph.SubValueDescription {
			continue
		}
		descs = append(descs, domain.Description{
			Language:    propString(sv.Props, "language"),
			Text:        propString(sv.Props, "description"),
			Instruction: propString(sv.Props, "instruction"),
		})
	}
	sort.Slice(descs, func(i, j int) bool {
		if descs[i].Language != descs[j].Language {
			return descs[i].Language < descs[j].Language
		}
		return descs[i].Text < descs[j].Text
	})
	return descs
}

func decodeAliases(subs []graph.SubValueRecord) []domain.Alias {
	var aliases []domain.Alias
	for _, sv := range subs {
		if sv.Kind != graph.SubValueAlias {
			continue
		}
		aliases = append(aliases, domain.Alias{
			Context: propString(sv.Props, "context"),
			Name:    propString(sv.Props, "name"),
		})
	}
	sort.Slice(aliases, func(i, j int) bool {
		if aliases[i].Context != aliases[j].Context {
			return aliases[i].Context < aliases[j].Context
		}
		return aliases[i].Name < aliases[j].Name
	})
	return aliases
}

func sortExpressions(exprs []domain.FormalExpression) {
	sort.Slice(exprs, func(i, j int) bool {
		if exprs[i].Context != exprs[j].Context {
			return exprs[i].Context < exprs[j].Context
		}
		return exprs[i].Expression < exprs[j].Expression
	})
}

// refsOfType filters edges by type, preserving the position ordering the
// store returns for ordered relationship types.
func refsOfType(refs []graph.RefEdgeRecord, refType string) []graph.RefEdgeRecord {
	var out []graph.RefEdgeRecord
	for _, edge := range refs {
		if edge.Type == refType {
			out = append(out, edge)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Prop accessors tolerate the type drift introduced by JSON snapshot
// round-trips (ints decode as float64, string slices as []any).

func propString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func propBool(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

func propInt(props map[string]any, key string) int {
	switch n := props[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func propStringSlice(props map[string]any, key string) []string {
	switch v := props[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
