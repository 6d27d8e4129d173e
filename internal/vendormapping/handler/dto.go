package handler

import (
	"time"

	templatemodels "templatehub/internal/template/models"
	"templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
	dErrors "templatehub/pkg/domain-errors"
)

// createMappingRequest is the write shape for creating a vendor mapping. The
// identity tuple is required here and immutable afterwards.
type createMappingRequest struct {
	MasterTemplateID string `json:"masterTemplateId"`
	TemplateVersion  int    `json:"templateVersion"`
	Vendor           string `json:"vendor"`
	VendorType       string `json:"vendorType"`

	patchMappingRequest
}

func (r createMappingRequest) toMapping() (models.VendorMapping, error) {
	templateID, err := id.ParseTemplateID(r.MasterTemplateID)
	if err != nil {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeBadRequest, "masterTemplateId must be a valid UUID")
	}
	if r.TemplateVersion < 1 {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeBadRequest, "templateVersion must be a positive integer")
	}
	mapping := r.patchMappingRequest.toPatch().ApplyTo(models.VendorMapping{})
	mapping.TemplateID = templateID
	mapping.TemplateVersion = r.TemplateVersion
	mapping.Vendor = r.Vendor
	mapping.VendorType = r.VendorType
	return mapping, nil
}

// patchMappingRequest carries the mutable fields. All pointers, so absent
// fields never erase stored values.
type patchMappingRequest struct {
	VendorTemplateKey  *string `json:"vendorTemplateKey"`
	VendorTemplateName *string `json:"vendorTemplateName"`
	ReferenceKeyType   *string `json:"referenceKeyType"`
	ConsumerID         *string `json:"consumerId"`

	StartDate *int64 `json:"startDate"`
	EndDate   *int64 `json:"endDate"`

	PrimaryFlag    *bool   `json:"primaryFlag"`
	ActiveFlag     *bool   `json:"activeFlag"`
	TemplateStatus *string `json:"templateStatus"`
	VendorStatus   *string `json:"vendorStatus"`
	PriorityOrder  *int    `json:"priorityOrder"`

	SchemaInfo     id.JSONMap `json:"schemaInfo"`
	TemplateFields id.JSONMap `json:"templateFields"`
	VendorConfig   id.JSONMap `json:"vendorConfig"`
	APIConfig      id.JSONMap `json:"apiConfig"`

	RateLimitPerMinute *int `json:"rateLimitPerMinute"`
	RateLimitPerDay    *int `json:"rateLimitPerDay"`
	TimeoutMs          *int `json:"timeoutMs"`
	MaxRetryAttempts   *int `json:"maxRetryAttempts"`
	RetryBackoffMs     *int `json:"retryBackoffMs"`

	CostPerUnit *float64 `json:"costPerUnit"`
	CostUnit    *string  `json:"costUnit"`

	SupportedRegions []string `json:"supportedRegions"`
	SupportedFormats []string `json:"supportedFormats"`

	HealthCheckEndpoint *string `json:"healthCheckEndpoint"`
}

func (r patchMappingRequest) toPatch() models.VendorPatch {
	return models.VendorPatch{
		VendorTemplateKey:  r.VendorTemplateKey,
		VendorTemplateName: r.VendorTemplateName,
		ReferenceKeyType:   r.ReferenceKeyType,
		ConsumerID:         r.ConsumerID,

		StartDate: r.StartDate,
		EndDate:   r.EndDate,

		PrimaryFlag:    r.PrimaryFlag,
		ActiveFlag:     r.ActiveFlag,
		TemplateStatus: r.TemplateStatus,
		VendorStatus:   r.VendorStatus,
		PriorityOrder:  r.PriorityOrder,

		SchemaInfo:     r.SchemaInfo,
		TemplateFields: r.TemplateFields,
		VendorConfig:   r.VendorConfig,
		APIConfig:      r.APIConfig,

		RateLimitPerMinute: r.RateLimitPerMinute,
		RateLimitPerDay:    r.RateLimitPerDay,
		TimeoutMs:          r.TimeoutMs,
		MaxRetryAttempts:   r.MaxRetryAttempts,
		RetryBackoffMs:     r.RetryBackoffMs,

		CostPerUnit: r.CostPerUnit,
		CostUnit:    r.CostUnit,

		SupportedRegions: r.SupportedRegions,
		SupportedFormats: r.SupportedFormats,

		HealthCheckEndpoint: r.HealthCheckEndpoint,
	}
}

type healthRequest struct {
	VendorStatus string `json:"vendorStatus"`
	HealthStatus string `json:"healthStatus"`
}

type mappingResponse struct {
	TemplateVendorID string `json:"templateVendorId"`
	MasterTemplateID string `json:"masterTemplateId"`
	TemplateVersion  int    `json:"templateVersion"`

	Vendor             string `json:"vendor"`
	VendorType         string `json:"vendorType"`
	VendorTemplateKey  string `json:"vendorTemplateKey,omitempty"`
	VendorTemplateName string `json:"vendorTemplateName,omitempty"`
	ReferenceKeyType   string `json:"referenceKeyType,omitempty"`
	ConsumerID         string `json:"consumerId,omitempty"`

	StartDate int64  `json:"startDate"`
	EndDate   *int64 `json:"endDate,omitempty"`

	VendorMappingVersion int `json:"vendorMappingVersion"`

	PrimaryFlag    bool   `json:"primaryFlag"`
	ActiveFlag     bool   `json:"activeFlag"`
	TemplateStatus string `json:"templateStatus,omitempty"`
	VendorStatus   string `json:"vendorStatus,omitempty"`
	PriorityOrder  int    `json:"priorityOrder"`

	SchemaInfo     id.JSONMap `json:"schemaInfo,omitempty"`
	TemplateFields id.JSONMap `json:"templateFields,omitempty"`
	VendorConfig   id.JSONMap `json:"vendorConfig,omitempty"`
	APIConfig      id.JSONMap `json:"apiConfig,omitempty"`

	RateLimitPerMinute int `json:"rateLimitPerMinute,omitempty"`
	RateLimitPerDay    int `json:"rateLimitPerDay,omitempty"`
	TimeoutMs          int `json:"timeoutMs"`
	MaxRetryAttempts   int `json:"maxRetryAttempts"`
	RetryBackoffMs     int `json:"retryBackoffMs"`

	CostPerUnit float64 `json:"costPerUnit,omitempty"`
	CostUnit    string  `json:"costUnit,omitempty"`

	SupportedRegions []string `json:"supportedRegions,omitempty"`
	SupportedFormats []string `json:"supportedFormats,omitempty"`

	HealthCheckEndpoint string     `json:"healthCheckEndpoint,omitempty"`
	LastHealthStatus    string     `json:"lastHealthStatus,omitempty"`
	LastHealthCheck     *time.Time `json:"lastHealthCheck,omitempty"`

	RecordStatus string `json:"recordStatus"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedTimestamp"`

	// Template is filled only when the caller asks for includeTemplateDetails.
	Template *templateSummary `json:"templateDetails,omitempty"`
}

// templateSummary is the trimmed template view embedded in a mapping response.
type templateSummary struct {
	TemplateName      string `json:"templateName"`
	TemplateType      string `json:"templateType"`
	LineOfBusiness    string `json:"lineOfBusiness,omitempty"`
	CommunicationType string `json:"communicationType"`
	ActiveFlag        bool   `json:"activeFlag"`
	RecordStatus      string `json:"recordStatus"`
}

func toTemplateSummary(t templatemodels.MasterTemplate) *templateSummary {
	return &templateSummary{
		TemplateName:      t.Name,
		TemplateType:      t.TemplateType,
		LineOfBusiness:    t.LineOfBusiness,
		CommunicationType: t.CommunicationType,
		ActiveFlag:        t.ActiveFlag,
		RecordStatus:      t.RecordStatus,
	}
}

func toMappingResponse(m models.VendorMapping) mappingResponse {
	return mappingResponse{
		TemplateVendorID: m.VendorID.String(),
		MasterTemplateID: m.TemplateID.String(),
		TemplateVersion:  m.TemplateVersion,

		Vendor:             m.Vendor,
		VendorType:         m.VendorType,
		VendorTemplateKey:  m.VendorTemplateKey,
		VendorTemplateName: m.VendorTemplateName,
		ReferenceKeyType:   m.ReferenceKeyType,
		ConsumerID:         m.ConsumerID,

		StartDate: m.StartDate,
		EndDate:   m.EndDate,

		VendorMappingVersion: m.MappingVersion,

		PrimaryFlag:    m.PrimaryFlag,
		ActiveFlag:     m.ActiveFlag,
		TemplateStatus: m.TemplateStatus,
		VendorStatus:   m.VendorStatus,
		PriorityOrder:  m.PriorityOrder,

		SchemaInfo:     m.SchemaInfo,
		TemplateFields: m.TemplateFields,
		VendorConfig:   m.VendorConfig,
		APIConfig:      m.APIConfig,

		RateLimitPerMinute: m.RateLimitPerMinute,
		RateLimitPerDay:    m.RateLimitPerDay,
		TimeoutMs:          m.TimeoutMs,
		MaxRetryAttempts:   m.MaxRetryAttempts,
		RetryBackoffMs:     m.RetryBackoffMs,

		CostPerUnit: m.CostPerUnit,
		CostUnit:    m.CostUnit,

		SupportedRegions: m.SupportedRegions,
		SupportedFormats: m.SupportedFormats,

		HealthCheckEndpoint: m.HealthCheckEndpoint,
		LastHealthStatus:    m.LastHealthStatus,
		LastHealthCheck:     m.LastHealthCheck,

		RecordStatus: m.RecordStatus,

		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
		UpdatedBy: m.UpdatedBy,
		UpdatedAt: m.UpdatedAt,
	}
}

func toMappingResponses(mappings []models.VendorMapping) []mappingResponse {
	out := make([]mappingResponse, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, toMappingResponse(m))
	}
	return out
}

type mappingListResponse struct {
	Mappings   []mappingResponse `json:"vendorMappings"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	Size       int               `json:"size"`
}
