package domain

import "testing"

func baseForm() Form {
	return Form{
		Name:      "Vitals",
		OID:       "F.VITALS",
		Repeating: false,
		Descriptions: []Description{
			{Language: "en", Text: "Vital signs"},
			{Language: "de", Text: "Vitalzeichen"},
		},
		Aliases:             []Alias{{Context: "CDASH", Name: "VS"}},
		VendorAttributeUIDs: []string{"OdmVendorAttribute_000001", "OdmVendorAttribute_000002"},
		ItemGroupUIDs:       []string{"IG_1", "IG_2"},
	}
}

func TestFormContentEqualsIgnoresSetOrder(t *testing.T) {
	a := baseForm()
	b := baseForm()
	b.Descriptions = []Description{b.Descriptions[1], b.Descriptions[0]}
	b.VendorAttributeUIDs = []string{"OdmVendorAttribute_000002", "OdmVendorAttribute_000001"}
	if !a.ContentEquals(b) {
		t.Fatal("reordering unordered collections must not change content equality")
	}
}

func TestFormContentEqualsItemGroupOrderSignificant(t *testing.T) {
	a := baseForm()
	b := baseForm()
	b.ItemGroupUIDs = []string{"IG_2", "IG_1"}
	if a.ContentEquals(b) {
		t.Fatal("item group sequence is ordered; reordering must change content")
	}
}

func TestFormContentEqualsDetectsScalarChange(t *testing.T) {
	a := baseForm()
	b := baseForm()
	b.Repeating = true
	if a.ContentEquals(b) {
		t.Fatal("scalar change must break content equality")
	}
}

func TestFormContentEqualsDuplicateAwareSets(t *testing.T) {
	a := baseForm()
	b := baseForm()
	b.Aliases = append(b.Aliases, b.Aliases[0])
	if a.ContentEquals(b) {
		t.Fatal("duplicated alias changes the multiset")
	}
}

func TestStudyEventContentEqualsRefOrderSignificant(t *testing.T) {
	a := StudyEvent{
		Name: "Baseline",
		OID:  "SE.BASE",
		FormRefs: []FormRef{
			{FormUID: "OdmForm_000001", OrderNumber: 1, Mandatory: true},
			{FormUID: "OdmForm_000002", OrderNumber: 2},
		},
	}
	b := a.Clone()
	if !a.ContentEquals(b) {
		t.Fatal("clone must be content-equal")
	}
	b.FormRefs[0], b.FormRefs[1] = b.FormRefs[1], b.FormRefs[0]
	if a.ContentEquals(b) {
		t.Fatal("form reference order is significant")
	}
	c := a.Clone()
	c.FormRefs[1].Mandatory = true
	if a.ContentEquals(c) {
		t.Fatal("edge metadata participates in content equality")
	}
}

func TestConditionContentEquals(t *testing.T) {
	a := Condition{
		Name: "Skip if male",
		OID:  "C.SKIP",
		FormalExpressions: []FormalExpression{
			{Context: "XPath", Expression: "sex = 'M'"},
			{Context: "SQL", Expression: "sex = 'M'"},
		},
	}
	b := a.Clone()
	b.FormalExpressions = []FormalExpression{b.FormalExpressions[1], b.FormalExpressions[0]}
	if !a.ContentEquals(b) {
		t.Fatal("formal expressions are an unordered set")
	}
	b.FormalExpressions[0].Expression = "sex = 'F'"
	if a.ContentEquals(b) {
		t.Fatal("changed expression must break equality")
	}
}

func TestVendorAttributeContentEquals(t *testing.T) {
	a := VendorAttribute{
		Name:            "sdv_flag",
		DataType:        "boolean",
		CompatibleTypes: []string{"form", "item_group"},
	}
	b := a.Clone()
	b.CompatibleTypes = []string{"item_group", "form"}
	if !a.ContentEquals(b) {
		t.Fatal("compatible types are an unordered set")
	}
	b.ValueRegex = "^(true|false)$"
	if a.ContentEquals(b) {
		t.Fatal("regex change must break equality")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := baseForm()
	b := a.Clone()
	b.Descriptions[0].Text = "changed"
	b.ItemGroupUIDs[0] = "IG_X"
	if a.Descriptions[0].Text == "changed" || a.ItemGroupUIDs[0] == "IG_X" {
		t.Fatal("Clone must not share backing arrays")
	}
}
