package domain

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a uid, or a version/status filter on a
// known uid, matches nothing. Never retried automatically.
type NotFoundError struct {
	Entity EntityType
	UID    string
	Filter string
}

func (e NotFoundError) Error() string {
	if e.Filter != "" {
		return fmt.Sprintf("%s %s not found (%s)", e.Entity, e.UID, e.Filter)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.UID)
}

// ConcurrentModificationError is returned when the latest-version pointer
// of a root changed between aggregate load and save commit. Callers reload
// and retry; the repository never retries internally.
type ConcurrentModificationError struct {
	Entity EntityType
	UID    string
}

func (e ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.UID)
}

// AlreadyExistsError is returned when a uniqueness probe finds another root
// with colliding identifying fields and a different uid in the same library.
type AlreadyExistsError struct {
	Entity   EntityType
	Property string
	Value    string
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Property, e.Value)
}

// BusinessRuleError reports an invalid lifecycle transition or comparable
// domain rule breach. The message is surfaced to callers verbatim.
type BusinessRuleError struct {
	Msg string
}

func (e BusinessRuleError) Error() string {
	return e.Msg
}

// IntegrityError reports graph-store inconsistency detected mid-operation,
// such as a missing prior version edge during rewiring. It aborts the
// enclosing transaction and is never silently ignored.
type IntegrityError struct {
	Msg string
}

func (e IntegrityError) Error() string {
	return "graph integrity violation: " + e.Msg
}

// RuleViolationError is returned when a transaction is blocked by rule
// evaluation at commit.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	msgs := make([]string, 0, len(e.Result.Violations))
	for _, v := range e.Result.Violations {
		msgs = append(msgs, v.Message)
	}
	return "transaction blocked by rules: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the typed errors attached to the violations, so callers
// can match a blocked commit with errors.As against, for example,
// AlreadyExistsError from a uniqueness rule.
func (e RuleViolationError) Unwrap() []error {
	var errs []error
	for _, v := range e.Result.Violations {
		if v.Err != nil {
			errs = append(errs, v.Err)
		}
	}
	return errs
}
