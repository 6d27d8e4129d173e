package handler

import (
	"time"

	"templatehub/internal/template/models"
	vendormodels "templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
)

// templateRequest is the write shape shared by create and patch. Every field
// is a pointer (or a map) so an absent field is distinguishable from a zero
// value; create dereferences, patch passes the pointers through.
type templateRequest struct {
	LegacyTemplateID   *string `json:"legacyTemplateId"`
	LegacyTemplateName *string `json:"legacyTemplateName"`
	TemplateName       *string `json:"templateName"`
	DisplayName        *string `json:"displayName"`
	Description        *string `json:"templateDescription"`
	LineOfBusiness     *string `json:"lineOfBusiness"`
	Category           *string `json:"templateCategory"`
	TemplateType       *string `json:"templateType"`
	LanguageCode       *string `json:"languageCode"`
	OwningDept         *string `json:"owningDept"`
	CommunicationType  *string `json:"communicationType"`
	Workflow           *string `json:"workflow"`

	NotificationNeeded   *bool   `json:"notificationNeeded"`
	RegulatoryFlag       *bool   `json:"regulatoryFlag"`
	MessageCenterDocFlag *bool   `json:"messageCenterDocFlag"`
	ActiveFlag           *bool   `json:"activeFlag"`
	SharedDocumentFlag   *bool   `json:"sharedDocumentFlag"`
	SingleDocumentFlag   *bool   `json:"singleDocumentFlag"`
	SharingScope         *string `json:"sharingScope"`

	Variables              id.JSONMap `json:"templateVariables"`
	DataExtractionConfig   id.JSONMap `json:"dataExtractionConfig"`
	DocumentMatchingConfig id.JSONMap `json:"documentMatchingConfig"`
	EligibilityCriteria    id.JSONMap `json:"eligibilityCriteria"`
	AccessControl          id.JSONMap `json:"accessControl"`
	RequiredFields         id.JSONMap `json:"requiredFields"`
	Config                 id.JSONMap `json:"templateConfig"`

	StartDate *int64 `json:"startDate"`
	EndDate   *int64 `json:"endDate"`

	RecordStatus *string `json:"recordStatus"`
}

func (r templateRequest) toTemplate() models.MasterTemplate {
	return r.toPatch().ApplyTo(models.MasterTemplate{})
}

func (r templateRequest) toPatch() models.TemplatePatch {
	return models.TemplatePatch{
		LegacyTemplateID:   r.LegacyTemplateID,
		LegacyTemplateName: r.LegacyTemplateName,
		Name:               r.TemplateName,
		DisplayName:        r.DisplayName,
		Description:        r.Description,
		LineOfBusiness:     r.LineOfBusiness,
		Category:           r.Category,
		TemplateType:       r.TemplateType,
		LanguageCode:       r.LanguageCode,
		OwningDept:         r.OwningDept,
		CommunicationType:  r.CommunicationType,
		Workflow:           r.Workflow,

		NotificationNeeded:   r.NotificationNeeded,
		RegulatoryFlag:       r.RegulatoryFlag,
		MessageCenterDocFlag: r.MessageCenterDocFlag,
		ActiveFlag:           r.ActiveFlag,
		SharedDocumentFlag:   r.SharedDocumentFlag,
		SingleDocumentFlag:   r.SingleDocumentFlag,
		SharingScope:         r.SharingScope,

		Variables:              r.Variables,
		DataExtractionConfig:   r.DataExtractionConfig,
		DocumentMatchingConfig: r.DocumentMatchingConfig,
		EligibilityCriteria:    r.EligibilityCriteria,
		AccessControl:          r.AccessControl,
		RequiredFields:         r.RequiredFields,
		Config:                 r.Config,

		StartDate: r.StartDate,
		EndDate:   r.EndDate,

		RecordStatus: r.RecordStatus,
	}
}

type templateResponse struct {
	MasterTemplateID string `json:"masterTemplateId"`
	TemplateVersion  int    `json:"templateVersion"`

	LegacyTemplateID   string `json:"legacyTemplateId,omitempty"`
	LegacyTemplateName string `json:"legacyTemplateName,omitempty"`
	TemplateName       string `json:"templateName"`
	DisplayName        string `json:"displayName,omitempty"`
	Description        string `json:"templateDescription,omitempty"`
	LineOfBusiness     string `json:"lineOfBusiness,omitempty"`
	Category           string `json:"templateCategory,omitempty"`
	TemplateType       string `json:"templateType"`
	LanguageCode       string `json:"languageCode"`
	OwningDept         string `json:"owningDept,omitempty"`
	CommunicationType  string `json:"communicationType"`
	Workflow           string `json:"workflow"`

	NotificationNeeded   bool   `json:"notificationNeeded"`
	RegulatoryFlag       bool   `json:"regulatoryFlag"`
	MessageCenterDocFlag bool   `json:"messageCenterDocFlag"`
	ActiveFlag           bool   `json:"activeFlag"`
	SharedDocumentFlag   bool   `json:"sharedDocumentFlag"`
	SingleDocumentFlag   bool   `json:"singleDocumentFlag"`
	SharingScope         string `json:"sharingScope,omitempty"`

	Variables              id.JSONMap `json:"templateVariables,omitempty"`
	DataExtractionConfig   id.JSONMap `json:"dataExtractionConfig,omitempty"`
	DocumentMatchingConfig id.JSONMap `json:"documentMatchingConfig,omitempty"`
	EligibilityCriteria    id.JSONMap `json:"eligibilityCriteria,omitempty"`
	AccessControl          id.JSONMap `json:"accessControl,omitempty"`
	RequiredFields         id.JSONMap `json:"requiredFields,omitempty"`
	Config                 id.JSONMap `json:"templateConfig,omitempty"`

	StartDate int64  `json:"startDate"`
	EndDate   *int64 `json:"endDate,omitempty"`

	RecordStatus string `json:"recordStatus"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedTimestamp"`

	// Vendors is filled only when the caller asks for includeVendors.
	Vendors []vendorSummary `json:"vendorMappings,omitempty"`
}

// vendorSummary is the trimmed vendor view embedded in a template response.
type vendorSummary struct {
	TemplateVendorID string `json:"templateVendorId"`
	Vendor           string `json:"vendor"`
	VendorType       string `json:"vendorType"`
	VendorStatus     string `json:"vendorStatus,omitempty"`
	PrimaryFlag      bool   `json:"primaryFlag"`
	ActiveFlag       bool   `json:"activeFlag"`
	PriorityOrder    int    `json:"priorityOrder"`
}

func toTemplateResponse(t models.MasterTemplate) templateResponse {
	return templateResponse{
		MasterTemplateID: t.TemplateID.String(),
		TemplateVersion:  t.Version,

		LegacyTemplateID:   t.LegacyTemplateID,
		LegacyTemplateName: t.LegacyTemplateName,
		TemplateName:       t.Name,
		DisplayName:        t.DisplayName,
		Description:        t.Description,
		LineOfBusiness:     t.LineOfBusiness,
		Category:           t.Category,
		TemplateType:       t.TemplateType,
		LanguageCode:       t.LanguageCode,
		OwningDept:         t.OwningDept,
		CommunicationType:  t.CommunicationType,
		Workflow:           t.Workflow,

		NotificationNeeded:   t.NotificationNeeded,
		RegulatoryFlag:       t.RegulatoryFlag,
		MessageCenterDocFlag: t.MessageCenterDocFlag,
		ActiveFlag:           t.ActiveFlag,
		SharedDocumentFlag:   t.SharedDocumentFlag,
		SingleDocumentFlag:   t.SingleDocumentFlag,
		SharingScope:         t.SharingScope,

		Variables:              t.Variables,
		DataExtractionConfig:   t.DataExtractionConfig,
		DocumentMatchingConfig: t.DocumentMatchingConfig,
		EligibilityCriteria:    t.EligibilityCriteria,
		AccessControl:          t.AccessControl,
		RequiredFields:         t.RequiredFields,
		Config:                 t.Config,

		StartDate: t.StartDate,
		EndDate:   t.EndDate,

		RecordStatus: t.RecordStatus,

		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
		UpdatedBy: t.UpdatedBy,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTemplateResponses(templates []models.MasterTemplate) []templateResponse {
	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	return out
}

func toVendorSummaries(mappings []vendormodels.VendorMapping) []vendorSummary {
	out := make([]vendorSummary, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, vendorSummary{
			TemplateVendorID: m.VendorID.String(),
			Vendor:           m.Vendor,
			VendorType:       m.VendorType,
			VendorStatus:     m.VendorStatus,
			PrimaryFlag:      m.PrimaryFlag,
			ActiveFlag:       m.ActiveFlag,
			PriorityOrder:    m.PriorityOrder,
		})
	}
	return out
}

type templateListResponse struct {
	Templates  []templateResponse `json:"templates"`
	TotalCount int64              `json:"totalCount"`
	Page       int                `json:"page"`
	Size       int                `json:"size"`
}
