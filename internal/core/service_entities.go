package core

import (
	"context"

	"mdrcore/internal/repository"
	"mdrcore/pkg/domain"
)

// Forms.

// CreateForm persists a new form as draft 0.1 in its library.
func (s *Service) CreateForm(ctx context.Context, form domain.Form) (domain.Form, error) {
	return createItem(ctx, s, "create_form", s.forms, form)
}

// GetForm loads a form; by default the latest version of a non-deleted root.
func (s *Service) GetForm(ctx context.Context, uid string, opts ...repository.FindOption) (domain.Form, error) {
	return getItem(ctx, s, "get_form", s.forms, domain.EntityForm, uid, opts...)
}

// SaveForm persists edited draft content, bumping the minor version unless
// the content is unchanged.
func (s *Service) SaveForm(ctx context.Context, form domain.Form) (domain.Form, error) {
	return saveItem(ctx, s, "save_form", s.forms, form)
}

// ApproveForm promotes the latest draft to final.
func (s *Service) ApproveForm(ctx context.Context, uid, actor, changeDescription string) (domain.Form, error) {
	return transitionItem(ctx, s, "approve_form", domain.EntityForm, uid, actor, changeDescription, s.forms.Approve)
}

// RetireForm inactivates the latest final version.
func (s *Service) RetireForm(ctx context.Context, uid, actor, changeDescription string) (domain.Form, error) {
	return transitionItem(ctx, s, "retire_form", domain.EntityForm, uid, actor, changeDescription, s.forms.Retire)
}

// ReactivateForm restores a retired form to final.
func (s *Service) ReactivateForm(ctx context.Context, uid, actor, changeDescription string) (domain.Form, error) {
	return transitionItem(ctx, s, "reactivate_form", domain.EntityForm, uid, actor, changeDescription, s.forms.Reactivate)
}

// NewFormDraft opens the next draft lineage over a final form.
func (s *Service) NewFormDraft(ctx context.Context, uid, actor, changeDescription string) (domain.Form, error) {
	return transitionItem(ctx, s, "new_form_draft", domain.EntityForm, uid, actor, changeDescription, s.forms.NewDraft)
}

// DeleteForm soft-deletes a draft-only form.
func (s *Service) DeleteForm(ctx context.Context, uid, actor string) error {
	return deleteItem(ctx, s, "delete_form", s.forms, domain.EntityForm, uid, actor)
}

// ListForms returns the latest version of every non-deleted form.
func (s *Service) ListForms(ctx context.Context) ([]domain.Form, error) {
	return listItems(ctx, s, "list_forms", s.forms, domain.EntityForm)
}

// FormHistory returns a form's audit trail, oldest first.
func (s *Service) FormHistory(ctx context.Context, uid string) ([]domain.VersionRecord, error) {
	return itemHistory(ctx, s, "form_history", s.forms, domain.EntityForm, uid)
}

// Study events.

// CreateStudyEvent persists a new study event as draft 0.1. Collection
// exception uids on form references must resolve to live roots.
func (s *Service) CreateStudyEvent(ctx context.Context, event domain.StudyEvent) (domain.StudyEvent, error) {
	if err := s.validateFormRefs(ctx, event.FormRefs); err != nil {
		return domain.StudyEvent{}, err
	}
	return createItem(ctx, s, "create_study_event", s.studyEvents, event)
}

// GetStudyEvent loads a study event.
func (s *Service) GetStudyEvent(ctx context.Context, uid string, opts ...repository.FindOption) (domain.StudyEvent, error) {
	return getItem(ctx, s, "get_study_event", s.studyEvents, domain.EntityStudyEvent, uid, opts...)
}

// SaveStudyEvent persists edited draft content.
func (s *Service) SaveStudyEvent(ctx context.Context, event domain.StudyEvent) (domain.StudyEvent, error) {
	if err := s.validateFormRefs(ctx, event.FormRefs); err != nil {
		return domain.StudyEvent{}, err
	}
	return saveItem(ctx, s, "save_study_event", s.studyEvents, event)
}

// ApproveStudyEvent promotes the latest draft to final.
func (s *Service) ApproveStudyEvent(ctx context.Context, uid, actor, changeDescription string) (domain.StudyEvent, error) {
	return transitionItem(ctx, s, "approve_study_event", domain.EntityStudyEvent, uid, actor, changeDescription, s.studyEvents.Approve)
}

// RetireStudyEvent inactivates the latest final version.
func (s *Service) RetireStudyEvent(ctx context.Context, uid, actor, changeDescription string) (domain.StudyEvent, error) {
	return transitionItem(ctx, s, "retire_study_event", domain.EntityStudyEvent, uid, actor, changeDescription, s.studyEvents.Retire)
}

// ReactivateStudyEvent restores a retired study event to final.
func (s *Service) ReactivateStudyEvent(ctx context.Context, uid, actor, changeDescription string) (domain.StudyEvent, error) {
	return transitionItem(ctx, s, "reactivate_study_event", domain.EntityStudyEvent, uid, actor, changeDescription, s.studyEvents.Reactivate)
}

// NewStudyEventDraft opens the next draft lineage over a final study event.
func (s *Service) NewStudyEventDraft(ctx context.Context, uid, actor, changeDescription string) (domain.StudyEvent, error) {
	return transitionItem(ctx, s, "new_study_event_draft", domain.EntityStudyEvent, uid, actor, changeDescription, s.studyEvents.NewDraft)
}

// DeleteStudyEvent soft-deletes a draft-only study event.
func (s *Service) DeleteStudyEvent(ctx context.Context, uid, actor string) error {
	return deleteItem(ctx, s, "delete_study_event", s.studyEvents, domain.EntityStudyEvent, uid, actor)
}

// ListStudyEvents returns the latest version of every non-deleted study event.
func (s *Service) ListStudyEvents(ctx context.Context) ([]domain.StudyEvent, error) {
	return listItems(ctx, s, "list_study_events", s.studyEvents, domain.EntityStudyEvent)
}

// StudyEventHistory returns a study event's audit trail, oldest first.
func (s *Service) StudyEventHistory(ctx context.Context, uid string) ([]domain.VersionRecord, error) {
	return itemHistory(ctx, s, "study_event_history", s.studyEvents, domain.EntityStudyEvent, uid)
}

// Conditions.

// CreateCondition persists a new collection-exception condition as draft 0.1.
func (s *Service) CreateCondition(ctx context.Context, cond domain.Condition) (domain.Condition, error) {
	return createItem(ctx, s, "create_condition", s.conditions, cond)
}

// GetCondition loads a condition.
func (s *Service) GetCondition(ctx context.Context, uid string, opts ...repository.FindOption) (domain.Condition, error) {
	return getItem(ctx, s, "get_condition", s.conditions, domain.EntityCondition, uid, opts...)
}

// SaveCondition persists edited draft content.
func (s *Service) SaveCondition(ctx context.Context, cond domain.Condition) (domain.Condition, error) {
	return saveItem(ctx, s, "save_condition", s.conditions, cond)
}

// ApproveCondition promotes the latest draft to final.
func (s *Service) ApproveCondition(ctx context.Context, uid, actor, changeDescription string) (domain.Condition, error) {
	return transitionItem(ctx, s, "approve_condition", domain.EntityCondition, uid, actor, changeDescription, s.conditions.Approve)
}

// RetireCondition inactivates the latest final version.
func (s *Service) RetireCondition(ctx context.Context, uid, actor, changeDescription string) (domain.Condition, error) {
	return transitionItem(ctx, s, "retire_condition", domain.EntityCondition, uid, actor, changeDescription, s.conditions.Retire)
}

// ReactivateCondition restores a retired condition to final.
func (s *Service) ReactivateCondition(ctx context.Context, uid, actor, changeDescription string) (domain.Condition, error) {
	return transitionItem(ctx, s, "reactivate_condition", domain.EntityCondition, uid, actor, changeDescription, s.conditions.Reactivate)
}

// NewConditionDraft opens the next draft lineage over a final condition.
func (s *Service) NewConditionDraft(ctx context.Context, uid, actor, changeDescription string) (domain.Condition, error) {
	return transitionItem(ctx, s, "new_condition_draft", domain.EntityCondition, uid, actor, changeDescription, s.conditions.NewDraft)
}

// DeleteCondition soft-deletes a draft-only condition.
func (s *Service) DeleteCondition(ctx context.Context, uid, actor string) error {
	return deleteItem(ctx, s, "delete_condition", s.conditions, domain.EntityCondition, uid, actor)
}

// ListConditions returns the latest version of every non-deleted condition.
func (s *Service) ListConditions(ctx context.Context) ([]domain.Condition, error) {
	return listItems(ctx, s, "list_conditions", s.conditions, domain.EntityCondition)
}

// ConditionHistory returns a condition's audit trail, oldest first.
func (s *Service) ConditionHistory(ctx context.Context, uid string) ([]domain.VersionRecord, error) {
	return itemHistory(ctx, s, "condition_history", s.conditions, domain.EntityCondition, uid)
}

// Vendor attributes.

// CreateVendorAttribute persists a new vendor attribute as draft 0.1.
func (s *Service) CreateVendorAttribute(ctx context.Context, attr domain.VendorAttribute) (domain.VendorAttribute, error) {
	return createItem(ctx, s, "create_vendor_attribute", s.vendorAttrs, attr)
}

// GetVendorAttribute loads a vendor attribute.
func (s *Service) GetVendorAttribute(ctx context.Context, uid string, opts ...repository.FindOption) (domain.VendorAttribute, error) {
	return getItem(ctx, s, "get_vendor_attribute", s.vendorAttrs, domain.EntityVendorAttribute, uid, opts...)
}

// SaveVendorAttribute persists edited draft content.
func (s *Service) SaveVendorAttribute(ctx context.Context, attr domain.VendorAttribute) (domain.VendorAttribute, error) {
	return saveItem(ctx, s, "save_vendor_attribute", s.vendorAttrs, attr)
}

// ApproveVendorAttribute promotes the latest draft to final.
func (s *Service) ApproveVendorAttribute(ctx context.Context, uid, actor, changeDescription string) (domain.VendorAttribute, error) {
	return transitionItem(ctx, s, "approve_vendor_attribute", domain.EntityVendorAttribute, uid, actor, changeDescription, s.vendorAttrs.Approve)
}

// RetireVendorAttribute inactivates the latest final version.
func (s *Service) RetireVendorAttribute(ctx context.Context, uid, actor, changeDescription string) (domain.VendorAttribute, error) {
	return transitionItem(ctx, s, "retire_vendor_attribute", domain.EntityVendorAttribute, uid, actor, changeDescription, s.vendorAttrs.Retire)
}

// ReactivateVendorAttribute restores a retired vendor attribute to final.
func (s *Service) ReactivateVendorAttribute(ctx context.Context, uid, actor, changeDescription string) (domain.VendorAttribute, error) {
	return transitionItem(ctx, s, "reactivate_vendor_attribute", domain.EntityVendorAttribute, uid, actor, changeDescription, s.vendorAttrs.Reactivate)
}

// NewVendorAttributeDraft opens the next draft lineage over a final
// vendor attribute.
func (s *Service) NewVendorAttributeDraft(ctx context.Context, uid, actor, changeDescription string) (domain.VendorAttribute, error) {
	return transitionItem(ctx, s, "new_vendor_attribute_draft", domain.EntityVendorAttribute, uid, actor, changeDescription, s.vendorAttrs.NewDraft)
}

// DeleteVendorAttribute soft-deletes a draft-only vendor attribute.
func (s *Service) DeleteVendorAttribute(ctx context.Context, uid, actor string) error {
	return deleteItem(ctx, s, "delete_vendor_attribute", s.vendorAttrs, domain.EntityVendorAttribute, uid, actor)
}

// ListVendorAttributes returns the latest version of every non-deleted
// vendor attribute.
func (s *Service) ListVendorAttributes(ctx context.Context) ([]domain.VendorAttribute, error) {
	return listItems(ctx, s, "list_vendor_attributes", s.vendorAttrs, domain.EntityVendorAttribute)
}

// VendorAttributeHistory returns a vendor attribute's audit trail.
func (s *Service) VendorAttributeHistory(ctx context.Context, uid string) ([]domain.VersionRecord, error) {
	return itemHistory(ctx, s, "vendor_attribute_history", s.vendorAttrs, domain.EntityVendorAttribute, uid)
}
