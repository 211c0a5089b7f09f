package repository

import (
	"testing"

	"mdrcore/pkg/domain"
	"mdrcore/pkg/graph"
)

func formValueID(t *testing.T, f domain.Form) string {
	t.Helper()
	def := FormDef()
	props, subs, refs, err := def.Encode(f)
	if err != nil {
		t.Fatalf("encode form: %v", err)
	}
	return graph.ValueID(def.Entity, props, subs, refs)
}

func studyEventValueID(t *testing.T, e domain.StudyEvent) string {
	t.Helper()
	def := StudyEventDef()
	props, subs, refs, err := def.Encode(e)
	if err != nil {
		t.Fatalf("encode study event: %v", err)
	}
	return graph.ValueID(def.Entity, props, subs, refs)
}

// The encoders and the ContentEquals methods both define what counts as
// "the same content". They must agree: reordering an unordered set leaves
// both unchanged, while any field or ordered-sequence difference changes
// both.
func TestEncodeAgreesWithContentEquals(t *testing.T) {
	base := domain.Form{
		Name:      "Vitals",
		OID:       "F.VITALS",
		Repeating: true,
		Descriptions: []domain.Description{
			{Language: "en", Text: "Vital signs"},
			{Language: "de", Text: "Vitalzeichen"},
		},
		Aliases: []domain.Alias{
			{Context: "CDASH", Name: "VS"},
			{Context: "SDTM", Name: "VS"},
		},
		VendorAttributeUIDs: []string{"VendorAttribute_000001", "VendorAttribute_000002"},
		ItemGroupUIDs:       []string{"ItemGroup_000001", "ItemGroup_000002"},
	}

	shuffled := base.Clone()
	shuffled.Aliases[0], shuffled.Aliases[1] = shuffled.Aliases[1], shuffled.Aliases[0]
	shuffled.Descriptions[0], shuffled.Descriptions[1] = shuffled.Descriptions[1], shuffled.Descriptions[0]
	shuffled.VendorAttributeUIDs[0], shuffled.VendorAttributeUIDs[1] = shuffled.VendorAttributeUIDs[1], shuffled.VendorAttributeUIDs[0]

	if !base.ContentEquals(shuffled) {
		t.Fatal("reordered unordered sets should compare equal")
	}
	if got, want := formValueID(t, shuffled), formValueID(t, base); got != want {
		t.Errorf("reordered unordered sets changed the value id: %s vs %s", got, want)
	}

	renamed := base.Clone()
	renamed.Name = "Vitals v2"
	if base.ContentEquals(renamed) {
		t.Fatal("scalar change should not compare equal")
	}
	if formValueID(t, renamed) == formValueID(t, base) {
		t.Error("scalar change did not change the value id")
	}

	resequenced := base.Clone()
	resequenced.ItemGroupUIDs[0], resequenced.ItemGroupUIDs[1] = resequenced.ItemGroupUIDs[1], resequenced.ItemGroupUIDs[0]
	if base.ContentEquals(resequenced) {
		t.Fatal("item group order is significant and should not compare equal")
	}
	if formValueID(t, resequenced) == formValueID(t, base) {
		t.Error("item group reorder did not change the value id")
	}

	event := domain.StudyEvent{
		Name: "Baseline",
		OID:  "SE.BASE",
		FormRefs: []domain.FormRef{
			{FormUID: "OdmForm_000001", OrderNumber: 1, Mandatory: true},
			{FormUID: "OdmForm_000002", OrderNumber: 2},
		},
	}
	swapped := event.Clone()
	swapped.FormRefs[0], swapped.FormRefs[1] = swapped.FormRefs[1], swapped.FormRefs[0]
	if event.ContentEquals(swapped) {
		t.Fatal("form ref order is significant and should not compare equal")
	}
	if studyEventValueID(t, swapped) == studyEventValueID(t, event) {
		t.Error("form ref reorder did not change the value id")
	}
}
