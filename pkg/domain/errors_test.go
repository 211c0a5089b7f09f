package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestRuleViolationErrorCarriesMessages(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{
		{Rule: "required_name", Severity: SeverityBlock, Message: "Name is required"},
		{Rule: "unique_name", Severity: SeverityBlock, Message: `form with name "Vitals" already exists`},
	}}}
	msg := err.Error()
	if !strings.Contains(msg, "Name is required") || !strings.Contains(msg, "Vitals") {
		t.Errorf("message %q", msg)
	}
}

func TestRuleViolationErrorUnwrapsTypedErrors(t *testing.T) {
	conflict := AlreadyExistsError{Entity: EntityForm, Property: "name", Value: "Vitals"}
	err := error(RuleViolationError{Result: Result{Violations: []Violation{
		{Rule: "required_name", Severity: SeverityBlock, Message: "Name is required"},
		{Rule: "unique_name", Severity: SeverityBlock, Message: conflict.Error(), Err: conflict},
	}}})

	var got AlreadyExistsError
	if !errors.As(err, &got) {
		t.Fatalf("errors.As must reach the attached conflict, got %v", err)
	}
	if got != conflict {
		t.Errorf("unwrapped %+v", got)
	}

	var notFound NotFoundError
	if errors.As(err, &notFound) {
		t.Error("unrelated target must not match")
	}
}
