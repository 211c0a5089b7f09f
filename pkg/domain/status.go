package domain

// VersionStatus is the lifecycle state attached to a version edge.
type VersionStatus string

// Lifecycle statuses of a versioned library item.
const (
	// StatusDraft marks an in-progress, still editable version.
	StatusDraft VersionStatus = "Draft"
	// StatusFinal marks an approved version.
	StatusFinal VersionStatus = "Final"
	// StatusRetired marks an inactivated final version.
	StatusRetired VersionStatus = "Retired"
)

// Valid reports whether the status is one of the three lifecycle states.
func (s VersionStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusFinal, StatusRetired:
		return true
	}
	return false
}

// LifecycleAction identifies a requested lifecycle step on a root.
type LifecycleAction string

// Lifecycle actions accepted by the repository save pipeline.
const (
	LifecycleCreate     LifecycleAction = "create"
	LifecycleEdit       LifecycleAction = "edit"
	LifecycleApprove    LifecycleAction = "approve"
	LifecycleRetire     LifecycleAction = "retire"
	LifecycleReactivate LifecycleAction = "reactivate"
	LifecycleNewDraft   LifecycleAction = "new_draft"
	LifecycleDelete     LifecycleAction = "delete"
)

// CheckTransition validates a lifecycle action against the current status
// and returns the status the new version edge must carry. The rule texts are
// load-bearing: callers surface them verbatim.
func CheckTransition(current VersionStatus, action LifecycleAction) (VersionStatus, error) {
	switch action {
	case LifecycleCreate:
		if current != "" {
			return "", BusinessRuleError{Msg: "Cannot create: item already exists"}
		}
		return StatusDraft, nil
	case LifecycleEdit:
		if current != StatusDraft {
			return "", BusinessRuleError{Msg: "Cannot edit non-draft version"}
		}
		return StatusDraft, nil
	case LifecycleApprove:
		if current != StatusDraft {
			return "", BusinessRuleError{Msg: "Only DRAFT version can be approved"}
		}
		return StatusFinal, nil
	case LifecycleRetire:
		if current == StatusDraft {
			return "", BusinessRuleError{Msg: "Cannot retire draft version"}
		}
		if current != StatusFinal {
			return "", BusinessRuleError{Msg: "Only FINAL version can be retired"}
		}
		return StatusRetired, nil
	case LifecycleReactivate:
		if current != StatusRetired {
			return "", BusinessRuleError{Msg: "Only RETIRED version can be reactivated"}
		}
		return StatusFinal, nil
	case LifecycleNewDraft:
		if current != StatusFinal {
			return "", BusinessRuleError{Msg: "New draft can only be created for FINAL version"}
		}
		return StatusDraft, nil
	case LifecycleDelete:
		if current != StatusDraft {
			return "", BusinessRuleError{Msg: "Object has been accepted"}
		}
		return current, nil
	default:
		return "", BusinessRuleError{Msg: "Unknown lifecycle action " + string(action)}
	}
}
