// Package domain defines the versioned library items, lifecycle primitives,
// and rule evaluation types used by mdrcore.
package domain

import "time"

// EntityType identifies the concept type stored behind a root.
type EntityType string

// Supported entity type identifiers used in version edges, uid generation
// and change records.
const (
	// EntityForm identifies an ODM form concept.
	EntityForm EntityType = "form"
	// EntityStudyEvent identifies an ODM study event concept.
	EntityStudyEvent EntityType = "study_event"
	// EntityCondition identifies a collection-exception condition concept.
	EntityCondition EntityType = "condition"
	// EntityVendorAttribute identifies a vendor extension attribute concept.
	EntityVendorAttribute EntityType = "vendor_attribute"
)

// UIDPrefix returns the human-inspectable uid prefix for the entity type.
func (t EntityType) UIDPrefix() string {
	switch t {
	case EntityForm:
		return "OdmForm"
	case EntityStudyEvent:
		return "OdmStudyEvent"
	case EntityCondition:
		return "OdmCondition"
	case EntityVendorAttribute:
		return "OdmVendorAttribute"
	}
	return "Item"
}

// Library is the owning namespace of a root. Items in a non-editable
// library can be read and referenced but never mutated.
type Library struct {
	Name     string `json:"name"`
	Editable bool   `json:"is_editable"`
}

// LibraryItem carries the identity and lifecycle metadata shared by every
// versioned aggregate. The uid and library never change after creation;
// everything else describes the version edge the aggregate was loaded from.
type LibraryItem struct {
	UID               string        `json:"uid"`
	Library           string        `json:"library_name"`
	Status            VersionStatus `json:"status"`
	Version           Version       `json:"version"`
	StartDate         time.Time     `json:"start_date"`
	EndDate           *time.Time    `json:"end_date"`
	AuthorID          string        `json:"author_id"`
	ChangeDescription string        `json:"change_description"`
	Deleted           bool          `json:"is_deleted"`
}

// Item returns a copy of the embedded base, letting generic code read the
// shared lifecycle fields of any aggregate. Lifecycle fields are assigned
// by repositories, never mutated through this accessor.
func (i LibraryItem) Item() LibraryItem { return i }

// Aggregate is the in-memory editable unit reconstructed by repositories:
// root identity plus the current value and lifecycle metadata.
type Aggregate interface {
	Item() LibraryItem
	EntityType() EntityType
}

// Alias is an immutable sub-value attached to concept values. Aliases with
// equal content may be shared across parent values.
type Alias struct {
	Context string `json:"context"`
	Name    string `json:"name"`
}

// Description is an immutable translated description sub-value.
type Description struct {
	Language    string `json:"language"`
	Text        string `json:"description"`
	Instruction string `json:"instruction,omitempty"`
}

// FormalExpression is an immutable machine-readable condition sub-value.
type FormalExpression struct {
	Context    string `json:"context"`
	Expression string `json:"expression"`
}

// FormRef is an ordered, metadata-carrying reference from a study event to
// a form. Order is significant; the metadata travels with the edge when the
// referenced form advances to a new value.
type FormRef struct {
	FormUID                string `json:"form_uid"`
	OrderNumber            int    `json:"order_number"`
	Mandatory              bool   `json:"mandatory"`
	Locked                 bool   `json:"locked"`
	CollectionExceptionUID string `json:"collection_exception_uid,omitempty"`
}

// VersionRecord is one entry of a root's audit trail, ordered oldest first.
type VersionRecord struct {
	Version           Version       `json:"version"`
	Status            VersionStatus `json:"status"`
	StartDate         time.Time     `json:"start_date"`
	EndDate           *time.Time    `json:"end_date"`
	AuthorID          string        `json:"author_id"`
	ChangeDescription string        `json:"change_description"`
}
