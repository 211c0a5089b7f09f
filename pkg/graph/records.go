// Package graph defines the persisted shapes of the versioned-aggregate
// graph (roots, values, version edges, reference edges) and the store
// contract implemented by the graph backends.
package graph

import (
	"time"

	"mdrcore/pkg/domain"
)

// RootRecord is the stable identity anchor of one entity. It is created
// once and never deleted; soft-delete only flips the Deleted flag.
type RootRecord struct {
	UID     string            `json:"uid"`
	Entity  domain.EntityType `json:"entity"`
	Library string            `json:"library"`
	Deleted bool              `json:"deleted"`
}

// SubValueRecord is an immutable, content-addressed sub-value node (alias,
// description, formal expression). Equal content yields equal IDs, so
// unchanged sub-values are reconnected rather than cloned.
type SubValueRecord struct {
	ID    string         `json:"id"`
	Kind  string         `json:"kind"`
	Props map[string]any `json:"props"`
}

// Sub-value kinds attached to concept values.
const (
	SubValueAlias       = "alias"
	SubValueDescription = "description"
	SubValueExpression  = "formal_expression"
)

// RefSpec describes a desired outbound reference of a value at save time,
// addressed by the target's root uid. The store resolves the target to its
// current value node when the edge is written.
type RefSpec struct {
	Type      string         `json:"type"`
	TargetUID string         `json:"target_uid"`
	Ordered   bool           `json:"ordered"`
	Position  int            `json:"position"`
	Props     map[string]any `json:"props,omitempty"`
}

// ValueRecord is an immutable snapshot of an entity's field data. The ID is
// derived from the content, so identical field sets collapse onto one node
// regardless of how many roots or versions point at it.
type ValueRecord struct {
	ID        string            `json:"id"`
	Entity    domain.EntityType `json:"entity"`
	Props     map[string]any    `json:"props"`
	SubValues []SubValueRecord  `json:"sub_values,omitempty"`
}

// VersionEdgeRecord is a status- and time-tagged edge from a root to the
// value current at that version.
type VersionEdgeRecord struct {
	RootUID           string               `json:"root_uid"`
	Entity            domain.EntityType    `json:"entity"`
	ValueID           string               `json:"value_id"`
	Version           domain.Version       `json:"version"`
	Status            domain.VersionStatus `json:"status"`
	StartDate         time.Time            `json:"start_date"`
	EndDate           *time.Time           `json:"end_date"`
	AuthorID          string               `json:"author_id"`
	ChangeDescription string               `json:"change_description"`
}

// Open reports whether the edge is the current one for its status track.
func (e VersionEdgeRecord) Open() bool { return e.EndDate == nil }

// RefEdgeRecord is a persisted cross-entity reference edge between two
// value nodes, carrying relationship-local metadata.
type RefEdgeRecord struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	SourceValueID string         `json:"source_value_id"`
	TargetRootUID string         `json:"target_root_uid"`
	TargetValueID string         `json:"target_value_id"`
	Position      int            `json:"position"`
	Props         map[string]any `json:"props,omitempty"`
}

// Reference edge types used by the shipped concept types.
const (
	RefFormRef         = "FORM_REF"
	RefItemGroupRef    = "ITEM_GROUP_REF"
	RefVendorAttribute = "HAS_VENDOR_ATTRIBUTE"
)
