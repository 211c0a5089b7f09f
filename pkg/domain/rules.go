package domain

import "context"

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the operations captured for rule evaluation
// and the audit trail.
const (
	// ActionCreate indicates a root gained its first version edge.
	ActionCreate Action = "create"
	// ActionUpdate indicates a root gained a new version edge.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation applied to a root during a transaction.
// Before is undefined for creates; both payloads hold aggregate snapshots.
type Change struct {
	Entity EntityType
	UID    string
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Violation reports a failed rule evaluation. Err optionally carries a
// typed domain error callers can reach through errors.As on the blocking
// RuleViolationError.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	UID      string
	Err      error
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleView provides read-only access to the transactional graph state for
// rule evaluation.
type RuleView interface {
	ListRootUIDs(entity EntityType) []string
	LatestProperty(uid string, property string) (string, bool)
	LatestStatus(uid string) (VersionStatus, bool)
	RootLibrary(uid string) (string, bool)
	RootDeleted(uid string) bool
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
