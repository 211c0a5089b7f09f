package core

import (
	"context"
	"fmt"

	"mdrcore/pkg/domain"
)

// itemPayload is the slice of an aggregate snapshot the default rules need.
type itemPayload struct {
	Name    string `json:"name"`
	Library string `json:"library_name"`
}

// refPayload is the slice of an aggregate snapshot carrying uids of other
// roots managed by this module.
type refPayload struct {
	FormRefs []struct {
		FormUID                string `json:"form_uid"`
		CollectionExceptionUID string `json:"collection_exception_uid"`
	} `json:"form_refs"`
	VendorAttributeUIDs []string `json:"vendor_attribute_uids"`
}

// NewDefaultRulesEngine returns the engine evaluated at every commit:
// names must be present and unique per library among live roots of the
// same entity type, and referenced uids must resolve to live roots.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(RequiredNameRule{})
	engine.Register(UniqueNameRule{})
	engine.Register(ReferenceIntegrityRule{})
	return engine
}

// RequiredNameRule blocks commits that would leave an item without a name.
type RequiredNameRule struct{}

// Name implements domain.Rule.
func (RequiredNameRule) Name() string { return "required_name" }

// Evaluate implements domain.Rule.
func (RequiredNameRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		payload, ok := domain.DecodeChangePayload[itemPayload](change.After)
		if !ok {
			continue
		}
		if payload.Name == "" {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "required_name",
				Severity: domain.SeverityBlock,
				Message:  "Name is required",
				Entity:   change.Entity,
				UID:      change.UID,
			})
		}
	}
	return result, nil
}

// UniqueNameRule blocks commits introducing a name already carried by the
// latest version of another live root of the same entity type in the same
// library.
type UniqueNameRule struct{}

// Name implements domain.Rule.
func (UniqueNameRule) Name() string { return "unique_name" }

// Evaluate implements domain.Rule.
func (UniqueNameRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		payload, ok := domain.DecodeChangePayload[itemPayload](change.After)
		if !ok || payload.Name == "" {
			continue
		}
		for _, uid := range view.ListRootUIDs(change.Entity) {
			if uid == change.UID || view.RootDeleted(uid) {
				continue
			}
			if library, ok := view.RootLibrary(uid); !ok || library != payload.Library {
				continue
			}
			name, ok := view.LatestProperty(uid, "name")
			if !ok || name != payload.Name {
				continue
			}
			conflict := domain.AlreadyExistsError{Entity: change.Entity, Property: "name", Value: payload.Name}
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "unique_name",
				Severity: domain.SeverityBlock,
				Message:  conflict.Error(),
				Entity:   change.Entity,
				UID:      change.UID,
				Err:      conflict,
			})
			break
		}
	}
	return result, nil
}

// ReferenceIntegrityRule blocks commits carrying uid references to roots
// that do not exist or have been soft-deleted. Item group uids are outside
// this module's root set and are not checked here.
type ReferenceIntegrityRule struct{}

// Name implements domain.Rule.
func (ReferenceIntegrityRule) Name() string { return "reference_integrity" }

// Evaluate implements domain.Rule.
func (ReferenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		payload, ok := domain.DecodeChangePayload[refPayload](change.After)
		if !ok {
			continue
		}
		var referenced []string
		for _, ref := range payload.FormRefs {
			referenced = append(referenced, ref.FormUID, ref.CollectionExceptionUID)
		}
		referenced = append(referenced, payload.VendorAttributeUIDs...)
		for _, uid := range referenced {
			if uid == "" {
				continue
			}
			if _, ok := view.RootLibrary(uid); ok && !view.RootDeleted(uid) {
				continue
			}
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     "reference_integrity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("Referenced item %s does not exist", uid),
				Entity:   change.Entity,
				UID:      change.UID,
			})
		}
	}
	return result, nil
}
