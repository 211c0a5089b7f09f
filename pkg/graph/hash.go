package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"mdrcore/pkg/domain"
)

// Value and sub-value nodes are content-addressed: the node ID is a digest
// over the canonical JSON encoding of the content. Two snapshots with equal
// field sets therefore collapse onto the same node, which is what makes the
// no-op save short-circuit a single string comparison.

// SubValueID derives the content address of a sub-value.
func SubValueID(kind string, props map[string]any) string {
	return digest(struct {
		Kind  string         `json:"kind"`
		Props map[string]any `json:"props"`
	}{Kind: kind, Props: props})
}

// NewSubValue builds a content-addressed sub-value record.
func NewSubValue(kind string, props map[string]any) SubValueRecord {
	return SubValueRecord{ID: SubValueID(kind, props), Kind: kind, Props: props}
}

// ValueID derives the content address of a value from its scalar props, its
// sub-value set (order-independent) and its reference specs (ordered refs
// by position, unordered refs as a set of target uids plus edge props).
func ValueID(entity domain.EntityType, props map[string]any, subValues []SubValueRecord, refs []RefSpec) string {
	subIDs := make([]string, 0, len(subValues))
	for _, sv := range subValues {
		subIDs = append(subIDs, sv.ID)
	}
	sort.Strings(subIDs)

	canonicalRefs := append([]RefSpec(nil), refs...)
	sort.SliceStable(canonicalRefs, func(i, j int) bool {
		a, b := canonicalRefs[i], canonicalRefs[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Ordered != b.Ordered {
			return a.Ordered
		}
		if a.Ordered {
			return a.Position < b.Position
		}
		return a.TargetUID < b.TargetUID
	})

	return digest(struct {
		Entity    domain.EntityType `json:"entity"`
		Props     map[string]any    `json:"props"`
		SubValues []string          `json:"sub_values"`
		Refs      []RefSpec         `json:"refs"`
	}{Entity: entity, Props: props, SubValues: subIDs, Refs: canonicalRefs})
}

// NewValue builds a content-addressed value record from its parts.
func NewValue(entity domain.EntityType, props map[string]any, subValues []SubValueRecord, refs []RefSpec) ValueRecord {
	return ValueRecord{
		ID:        ValueID(entity, props, subValues, refs),
		Entity:    entity,
		Props:     props,
		SubValues: subValues,
	}
}

func digest(v any) string {
	// encoding/json emits map keys sorted, so the encoding is canonical.
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("graph: canonical encoding: %w", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
