package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mdrcore/pkg/domain"
)

type fakeRoot struct {
	entity  domain.EntityType
	library string
	name    string
	deleted bool
}

type fakeRuleView struct {
	roots map[string]fakeRoot
}

func (v fakeRuleView) ListRootUIDs(entity domain.EntityType) []string {
	var uids []string
	for uid, root := range v.roots {
		if root.entity == entity {
			uids = append(uids, uid)
		}
	}
	return uids
}

func (v fakeRuleView) LatestProperty(uid, property string) (string, bool) {
	root, ok := v.roots[uid]
	if !ok || property != "name" {
		return "", false
	}
	return root.name, true
}

func (v fakeRuleView) LatestStatus(uid string) (domain.VersionStatus, bool) {
	if _, ok := v.roots[uid]; !ok {
		return "", false
	}
	return domain.StatusDraft, true
}

func (v fakeRuleView) RootLibrary(uid string) (string, bool) {
	root, ok := v.roots[uid]
	if !ok {
		return "", false
	}
	return root.library, true
}

func (v fakeRuleView) RootDeleted(uid string) bool {
	return v.roots[uid].deleted
}

func createChange(t *testing.T, entity domain.EntityType, uid string, after any) domain.Change {
	t.Helper()
	payload, err := domain.NewChangePayloadFromValue(after)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	return domain.Change{
		Entity: entity,
		UID:    uid,
		Action: domain.ActionCreate,
		Before: domain.UndefinedChangePayload(),
		After:  payload,
	}
}

func TestUniqueNameRuleScopedToLibrary(t *testing.T) {
	view := fakeRuleView{roots: map[string]fakeRoot{
		"OdmForm_000001": {entity: domain.EntityForm, library: "Sponsor", name: "Vitals"},
		"OdmForm_000002": {entity: domain.EntityForm, library: "CDISC", name: "Labs"},
		"OdmForm_000003": {entity: domain.EntityForm, library: "Sponsor", name: "Demographics", deleted: true},
	}}
	rule := UniqueNameRule{}

	cases := []struct {
		desc    string
		library string
		name    string
		block   bool
	}{
		{"same name same library", "Sponsor", "Vitals", true},
		{"same name other library", "CDISC", "Vitals", false},
		{"name of a deleted root", "Sponsor", "Demographics", false},
		{"fresh name", "Sponsor", "Weight", false},
	}
	for _, c := range cases {
		change := createChange(t, domain.EntityForm, "OdmForm_000099",
			map[string]any{"name": c.name, "library_name": c.library})
		result, err := rule.Evaluate(context.Background(), view, []domain.Change{change})
		if err != nil {
			t.Fatalf("%s: %v", c.desc, err)
		}
		if got := result.HasBlocking(); got != c.block {
			t.Errorf("%s: blocking=%v want %v (%+v)", c.desc, got, c.block, result.Violations)
		}
		if c.block {
			var conflict domain.AlreadyExistsError
			if !errors.As(result.Violations[0].Err, &conflict) || conflict.Value != c.name {
				t.Errorf("%s: violation must carry AlreadyExistsError, got %+v", c.desc, result.Violations[0])
			}
		}
	}
}

func TestReferenceIntegrityRule(t *testing.T) {
	view := fakeRuleView{roots: map[string]fakeRoot{
		"OdmForm_000001":            {entity: domain.EntityForm, library: "Sponsor", name: "Vitals"},
		"OdmCondition_000001":       {entity: domain.EntityCondition, library: "Sponsor", name: "Fasting"},
		"OdmVendorAttribute_000001": {entity: domain.EntityVendorAttribute, library: "Sponsor", name: "SASFieldName", deleted: true},
	}}
	rule := ReferenceIntegrityRule{}

	valid := domain.StudyEvent{
		Name: "Baseline",
		FormRefs: []domain.FormRef{{
			FormUID:                "OdmForm_000001",
			CollectionExceptionUID: "OdmCondition_000001",
		}},
	}
	change := createChange(t, domain.EntityStudyEvent, "OdmStudyEvent_000001", valid)
	result, err := rule.Evaluate(context.Background(), view, []domain.Change{change})
	if err != nil {
		t.Fatalf("valid refs: %v", err)
	}
	if result.HasBlocking() {
		t.Fatalf("valid refs blocked: %+v", result.Violations)
	}

	dangling := valid.Clone()
	dangling.FormRefs[0].FormUID = "OdmForm_000404"
	change = createChange(t, domain.EntityStudyEvent, "OdmStudyEvent_000001", dangling)
	result, err = rule.Evaluate(context.Background(), view, []domain.Change{change})
	if err != nil {
		t.Fatalf("dangling refs: %v", err)
	}
	if !result.HasBlocking() || !strings.Contains(result.Violations[0].Message, "OdmForm_000404") {
		t.Fatalf("dangling form ref not blocked: %+v", result.Violations)
	}

	deletedTarget := domain.Form{Name: "Weight", VendorAttributeUIDs: []string{"OdmVendorAttribute_000001"}}
	change = createChange(t, domain.EntityForm, "OdmForm_000099", deletedTarget)
	result, err = rule.Evaluate(context.Background(), view, []domain.Change{change})
	if err != nil {
		t.Fatalf("deleted target: %v", err)
	}
	if !result.HasBlocking() {
		t.Fatal("reference to a deleted root must block")
	}
}
