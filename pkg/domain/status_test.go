package domain

import (
	"errors"
	"testing"
)

func TestCheckTransitionAllowed(t *testing.T) {
	cases := []struct {
		current VersionStatus
		action  LifecycleAction
		want    VersionStatus
	}{
		{"", LifecycleCreate, StatusDraft},
		{StatusDraft, LifecycleEdit, StatusDraft},
		{StatusDraft, LifecycleApprove, StatusFinal},
		{StatusFinal, LifecycleRetire, StatusRetired},
		{StatusRetired, LifecycleReactivate, StatusFinal},
		{StatusFinal, LifecycleNewDraft, StatusDraft},
		{StatusDraft, LifecycleDelete, StatusDraft},
	}
	for _, tc := range cases {
		got, err := CheckTransition(tc.current, tc.action)
		if err != nil {
			t.Errorf("CheckTransition(%q, %q): %v", tc.current, tc.action, err)
			continue
		}
		if got != tc.want {
			t.Errorf("CheckTransition(%q, %q) = %q, want %q", tc.current, tc.action, got, tc.want)
		}
	}
}

func TestCheckTransitionRejected(t *testing.T) {
	cases := []struct {
		current VersionStatus
		action  LifecycleAction
		wantMsg string
	}{
		{StatusFinal, LifecycleEdit, "Cannot edit non-draft version"},
		{StatusRetired, LifecycleEdit, "Cannot edit non-draft version"},
		{StatusFinal, LifecycleApprove, "Only DRAFT version can be approved"},
		{StatusRetired, LifecycleApprove, "Only DRAFT version can be approved"},
		{StatusDraft, LifecycleRetire, "Cannot retire draft version"},
		{StatusRetired, LifecycleRetire, "Only FINAL version can be retired"},
		{StatusDraft, LifecycleReactivate, "Only RETIRED version can be reactivated"},
		{StatusFinal, LifecycleReactivate, "Only RETIRED version can be reactivated"},
		{StatusDraft, LifecycleNewDraft, "New draft can only be created for FINAL version"},
		{StatusRetired, LifecycleNewDraft, "New draft can only be created for FINAL version"},
		{StatusFinal, LifecycleDelete, "Object has been accepted"},
		{StatusRetired, LifecycleDelete, "Object has been accepted"},
	}
	for _, tc := range cases {
		_, err := CheckTransition(tc.current, tc.action)
		if err == nil {
			t.Errorf("CheckTransition(%q, %q): expected error", tc.current, tc.action)
			continue
		}
		var ruleErr BusinessRuleError
		if !errors.As(err, &ruleErr) {
			t.Errorf("CheckTransition(%q, %q): error type %T", tc.current, tc.action, err)
			continue
		}
		if ruleErr.Msg != tc.wantMsg {
			t.Errorf("CheckTransition(%q, %q) message %q, want %q", tc.current, tc.action, ruleErr.Msg, tc.wantMsg)
		}
	}
}

func TestVersionStatusValid(t *testing.T) {
	for _, s := range []VersionStatus{StatusDraft, StatusFinal, StatusRetired} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if VersionStatus("Published").Valid() {
		t.Error("unknown status should be invalid")
	}
}
