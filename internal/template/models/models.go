// Package models defines the master template aggregate: an immutable,
// version-numbered snapshot of a logical document template. One logical
// template is the set of rows sharing a TemplateID; each row is a distinct
// Version starting at 1.
package models

import (
	"time"

	id "templatehub/pkg/domain"
)

// Record status values a template moves through.
const (
	RecordStatusDraft  = "DRAFT"
	RecordStatusActive = "ACTIVE"
)

// Server-assigned defaults applied exactly once at creation.
const (
	DefaultLanguageCode      = "en"
	DefaultCommunicationType = "LETTER"
	DefaultWorkflow          = "2_EYES"
)

// MasterTemplate is one version of a logical document template. A non-archived
// row never changes its (TemplateID, Version) identity; mutation either
// patches the same version in place or forks a new version.
type MasterTemplate struct {
	TemplateID id.TemplateID
	Version    int

	LegacyTemplateID   string
	LegacyTemplateName string
	Name               string
	DisplayName        string
	Description        string
	LineOfBusiness     string
	Category           string
	TemplateType       string
	LanguageCode       string
	OwningDept         string
	CommunicationType  string
	Workflow           string

	NotificationNeeded   bool
	RegulatoryFlag       bool
	MessageCenterDocFlag bool
	ActiveFlag           bool
	SharedDocumentFlag   bool
	SingleDocumentFlag   bool
	SharingScope         string

	Variables              id.JSONMap
	DataExtractionConfig   id.JSONMap
	DocumentMatchingConfig id.JSONMap
	EligibilityCriteria    id.JSONMap
	AccessControl          id.JSONMap
	RequiredFields         id.JSONMap
	Config                 id.JSONMap

	// Validity window in epoch millis. A nil EndDate means open-ended.
	StartDate int64
	EndDate   *int64

	RecordStatus string

	CreatedBy  string
	CreatedAt  time.Time
	UpdatedBy  string
	UpdatedAt  time.Time
	Archived   bool
	ArchivedAt *time.Time
}

// IsValidAt reports whether the template's validity window covers the given
// instant.
func (t MasterTemplate) IsValidAt(now time.Time) bool {
	millis := now.UnixMilli()
	if millis < t.StartDate {
		return false
	}
	if t.EndDate != nil && millis > *t.EndDate {
		return false
	}
	return true
}

// ApplyDefaults fills server-assigned defaults on a freshly created template.
// Only empty fields are touched so caller-supplied values always win.
func (t *MasterTemplate) ApplyDefaults() {
	if t.LanguageCode == "" {
		t.LanguageCode = DefaultLanguageCode
	}
	if t.CommunicationType == "" {
		t.CommunicationType = DefaultCommunicationType
	}
	if t.Workflow == "" {
		t.Workflow = DefaultWorkflow
	}
	if t.RecordStatus == "" {
		t.RecordStatus = RecordStatusDraft
	}
}

// TemplatePatch carries field-level updates. Nil fields keep the existing
// value; this is what makes absent fields in an update request non-erasing.
type TemplatePatch struct {
	LegacyTemplateID   *string
	LegacyTemplateName *string
	Name               *string
	DisplayName        *string
	Description        *string
	LineOfBusiness     *string
	Category           *string
	TemplateType       *string
	LanguageCode       *string
	OwningDept         *string
	CommunicationType  *string
	Workflow           *string

	NotificationNeeded   *bool
	RegulatoryFlag       *bool
	MessageCenterDocFlag *bool
	ActiveFlag           *bool
	SharedDocumentFlag   *bool
	SingleDocumentFlag   *bool
	SharingScope         *string

	Variables              id.JSONMap
	DataExtractionConfig   id.JSONMap
	DocumentMatchingConfig id.JSONMap
	EligibilityCriteria    id.JSONMap
	AccessControl          id.JSONMap
	RequiredFields         id.JSONMap
	Config                 id.JSONMap

	StartDate *int64
	EndDate   *int64

	RecordStatus *string
}

// ApplyTo merges the patch into a copy of existing and returns it. Touched
// fields are replaced, untouched fields survive unchanged.
func (p TemplatePatch) ApplyTo(existing MasterTemplate) MasterTemplate {
	out := existing
	if p.LegacyTemplateID != nil {
		out.LegacyTemplateID = *p.LegacyTemplateID
	}
	if p.LegacyTemplateName != nil {
		out.LegacyTemplateName = *p.LegacyTemplateName
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.DisplayName != nil {
		out.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.LineOfBusiness != nil {
		out.LineOfBusiness = *p.LineOfBusiness
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.TemplateType != nil {
		out.TemplateType = *p.TemplateType
	}
	if p.LanguageCode != nil {
		out.LanguageCode = *p.LanguageCode
	}
	if p.OwningDept != nil {
		out.OwningDept = *p.OwningDept
	}
	if p.CommunicationType != nil {
		out.CommunicationType = *p.CommunicationType
	}
	if p.Workflow != nil {
		out.Workflow = *p.Workflow
	}
	if p.NotificationNeeded != nil {
		out.NotificationNeeded = *p.NotificationNeeded
	}
	if p.RegulatoryFlag != nil {
		out.RegulatoryFlag = *p.RegulatoryFlag
	}
	if p.MessageCenterDocFlag != nil {
		out.MessageCenterDocFlag = *p.MessageCenterDocFlag
	}
	if p.ActiveFlag != nil {
		out.ActiveFlag = *p.ActiveFlag
	}
	if p.SharedDocumentFlag != nil {
		out.SharedDocumentFlag = *p.SharedDocumentFlag
	}
	if p.SingleDocumentFlag != nil {
		out.SingleDocumentFlag = *p.SingleDocumentFlag
	}
	if p.SharingScope != nil {
		out.SharingScope = *p.SharingScope
	}
	if p.Variables != nil {
		out.Variables = p.Variables
	}
	if p.DataExtractionConfig != nil {
		out.DataExtractionConfig = p.DataExtractionConfig
	}
	if p.DocumentMatchingConfig != nil {
		out.DocumentMatchingConfig = p.DocumentMatchingConfig
	}
	if p.EligibilityCriteria != nil {
		out.EligibilityCriteria = p.EligibilityCriteria
	}
	if p.AccessControl != nil {
		out.AccessControl = p.AccessControl
	}
	if p.RequiredFields != nil {
		out.RequiredFields = p.RequiredFields
	}
	if p.Config != nil {
		out.Config = p.Config
	}
	if p.StartDate != nil {
		out.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		out.EndDate = p.EndDate
	}
	if p.RecordStatus != nil {
		out.RecordStatus = *p.RecordStatus
	}
	return out
}

// ListFilter narrows a paged template listing. Nil fields are ignored;
// non-nil fields combine with logical AND. Archived rows are always excluded.
type ListFilter struct {
	LineOfBusiness    *string
	TemplateType      *string
	ActiveFlag        *bool
	CommunicationType *string
}

// Page is a limit/offset window over a filtered listing.
type Page struct {
	Limit  int
	Offset int
}
