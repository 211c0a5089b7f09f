package domain

// Form is an ODM form concept. Descriptions and aliases are unordered
// sub-value sets; item group membership is an ordered sequence; vendor
// attributes are referenced by uid only.
type Form struct {
	LibraryItem
	Name                string        `json:"name"`
	OID                 string        `json:"oid"`
	Repeating           bool          `json:"repeating"`
	Descriptions        []Description `json:"descriptions"`
	Aliases             []Alias       `json:"aliases"`
	VendorAttributeUIDs []string      `json:"vendor_attribute_uids"`
	ItemGroupUIDs       []string      `json:"item_group_uids"`
}

// EntityType implements Aggregate.
func (Form) EntityType() EntityType { return EntityForm }

// ContentEquals reports whether the two forms carry semantically equal
// field data: scalars match, set-typed collections match regardless of
// order, and the ordered item group sequence matches element-wise.
//
// The ContentEquals family is the reference comparison for change
// detection. Value encoders derive content identity from the same field
// set under the same ordering rules, so two aggregates are ContentEquals
// exactly when they encode to the same value id.
func (f Form) ContentEquals(other Form) bool {
	return f.Name == other.Name &&
		f.OID == other.OID &&
		f.Repeating == other.Repeating &&
		equalDescriptionSets(f.Descriptions, other.Descriptions) &&
		equalAliasSets(f.Aliases, other.Aliases) &&
		equalUIDSets(f.VendorAttributeUIDs, other.VendorAttributeUIDs) &&
		equalUIDSequences(f.ItemGroupUIDs, other.ItemGroupUIDs)
}

// Clone returns a deep copy safe to mutate independently.
func (f Form) Clone() Form {
	cp := f
	cp.Descriptions = append([]Description(nil), f.Descriptions...)
	cp.Aliases = append([]Alias(nil), f.Aliases...)
	cp.VendorAttributeUIDs = append([]string(nil), f.VendorAttributeUIDs...)
	cp.ItemGroupUIDs = append([]string(nil), f.ItemGroupUIDs...)
	return cp
}

// StudyEvent is an ODM study event concept. Its form references are an
// ordered sequence with per-edge metadata and participate in rewiring when
// a referenced form advances.
type StudyEvent struct {
	LibraryItem
	Name     string    `json:"name"`
	OID      string    `json:"oid"`
	FormRefs []FormRef `json:"form_refs"`
}

// EntityType implements Aggregate.
func (StudyEvent) EntityType() EntityType { return EntityStudyEvent }

// ContentEquals compares study events; form references are order-sensitive
// and compared including their edge metadata.
func (e StudyEvent) ContentEquals(other StudyEvent) bool {
	if e.Name != other.Name || e.OID != other.OID {
		return false
	}
	if len(e.FormRefs) != len(other.FormRefs) {
		return false
	}
	for i := range e.FormRefs {
		if e.FormRefs[i] != other.FormRefs[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to mutate independently.
func (e StudyEvent) Clone() StudyEvent {
	cp := e
	cp.FormRefs = append([]FormRef(nil), e.FormRefs...)
	return cp
}

// Condition is a collection-exception condition concept.
type Condition struct {
	LibraryItem
	Name              string             `json:"name"`
	OID               string             `json:"oid"`
	FormalExpressions []FormalExpression `json:"formal_expressions"`
	Descriptions      []Description      `json:"descriptions"`
	Aliases           []Alias            `json:"aliases"`
}

// EntityType implements Aggregate.
func (Condition) EntityType() EntityType { return EntityCondition }

// ContentEquals compares conditions; all collections are unordered sets.
func (c Condition) ContentEquals(other Condition) bool {
	return c.Name == other.Name &&
		c.OID == other.OID &&
		equalExpressionSets(c.FormalExpressions, other.FormalExpressions) &&
		equalDescriptionSets(c.Descriptions, other.Descriptions) &&
		equalAliasSets(c.Aliases, other.Aliases)
}

// Clone returns a deep copy safe to mutate independently.
func (c Condition) Clone() Condition {
	cp := c
	cp.FormalExpressions = append([]FormalExpression(nil), c.FormalExpressions...)
	cp.Descriptions = append([]Description(nil), c.Descriptions...)
	cp.Aliases = append([]Alias(nil), c.Aliases...)
	return cp
}

// VendorAttribute is a vendor extension attribute concept referenced by
// forms and other ODM entities.
type VendorAttribute struct {
	LibraryItem
	Name            string   `json:"name"`
	DataType        string   `json:"data_type"`
	ValueRegex      string   `json:"value_regex,omitempty"`
	CompatibleTypes []string `json:"compatible_types"`
}

// EntityType implements Aggregate.
func (VendorAttribute) EntityType() EntityType { return EntityVendorAttribute }

// ContentEquals compares vendor attributes; compatible types are a set.
func (a VendorAttribute) ContentEquals(other VendorAttribute) bool {
	return a.Name == other.Name &&
		a.DataType == other.DataType &&
		a.ValueRegex == other.ValueRegex &&
		equalUIDSets(a.CompatibleTypes, other.CompatibleTypes)
}

// Clone returns a deep copy safe to mutate independently.
func (a VendorAttribute) Clone() VendorAttribute {
	cp := a
	cp.CompatibleTypes = append([]string(nil), a.CompatibleTypes...)
	return cp
}
