// Package models defines the vendor mapping aggregate: a routing entry
// binding one template version to one downstream vendor, with priority,
// capacity, and health metadata for failover decisions.
package models

import (
	"time"

	id "templatehub/pkg/domain"
)

// Vendor mapping categories.
const (
	VendorTypeGeneration = "GENERATION"
	VendorTypePrint      = "PRINT"
	VendorTypeEmail      = "EMAIL"
)

// Vendor operational statuses. A mapping with a nil-equivalent (empty) status
// is still routable; only statuses outside this set exclude it.
const (
	VendorStatusActive   = "ACTIVE"
	VendorStatusDegraded = "DEGRADED"
	VendorStatusDown     = "DOWN"
)

// Server-assigned defaults applied exactly once at creation.
const (
	DefaultPriorityOrder    = 1
	DefaultTimeoutMs        = 30000
	DefaultMaxRetryAttempts = 3
	DefaultRetryBackoffMs   = 1000
)

// VendorMapping routes one (templateId, templateVersion) to a vendor of a
// given type. The tuple (TemplateID, TemplateVersion, Vendor, VendorType) is
// unique among non-archived mappings; PriorityOrder carries no uniqueness.
type VendorMapping struct {
	VendorID        id.VendorID
	TemplateID      id.TemplateID
	TemplateVersion int

	Vendor             string
	VendorType         string
	VendorTemplateKey  string
	VendorTemplateName string
	ReferenceKeyType   string
	ConsumerID         string

	// Validity window in epoch millis, nil EndDate meaning open-ended.
	StartDate int64
	EndDate   *int64

	// MappingVersion counts updates to this mapping. It starts at 1 and bumps
	// on every regular update; health updates leave it alone.
	MappingVersion int

	PrimaryFlag    bool
	ActiveFlag     bool
	TemplateStatus string
	VendorStatus   string
	PriorityOrder  int

	SchemaInfo     id.JSONMap
	TemplateFields id.JSONMap
	VendorConfig   id.JSONMap
	APIConfig      id.JSONMap

	RateLimitPerMinute int
	RateLimitPerDay    int
	TimeoutMs          int
	MaxRetryAttempts   int
	RetryBackoffMs     int

	CostPerUnit float64
	CostUnit    string

	SupportedRegions []string
	SupportedFormats []string

	HealthCheckEndpoint string
	LastHealthStatus    string
	LastHealthCheck     *time.Time

	RecordStatus string

	CreatedBy  string
	CreatedAt  time.Time
	UpdatedBy  string
	UpdatedAt  time.Time
	Archived   bool
	ArchivedAt *time.Time
}

// Routable reports whether the mapping may be offered to the routing
// selector: active, and not in a status known to be unusable.
func (v VendorMapping) Routable() bool {
	if !v.ActiveFlag {
		return false
	}
	switch v.VendorStatus {
	case "", VendorStatusActive, VendorStatusDegraded:
		return true
	default:
		return false
	}
}

// ApplyDefaults fills server-assigned defaults on a freshly created mapping.
func (v *VendorMapping) ApplyDefaults(now time.Time) {
	v.MappingVersion = 1
	v.ActiveFlag = true
	if v.VendorStatus == "" {
		v.VendorStatus = VendorStatusActive
	}
	if v.TemplateStatus == "" {
		v.TemplateStatus = "DRAFT"
	}
	if v.RecordStatus == "" {
		v.RecordStatus = "DRAFT"
	}
	if v.PriorityOrder == 0 {
		v.PriorityOrder = DefaultPriorityOrder
	}
	if v.TimeoutMs == 0 {
		v.TimeoutMs = DefaultTimeoutMs
	}
	if v.MaxRetryAttempts == 0 {
		v.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if v.RetryBackoffMs == 0 {
		v.RetryBackoffMs = DefaultRetryBackoffMs
	}
	if v.StartDate == 0 {
		v.StartDate = now.UnixMilli()
	}
}

// VendorPatch carries field-level updates. Nil fields keep the existing
// value. The identity tuple (template, version, vendor, vendorType) is not
// patchable; a different route is a different mapping.
type VendorPatch struct {
	VendorTemplateKey  *string
	VendorTemplateName *string
	ReferenceKeyType   *string
	ConsumerID         *string

	StartDate *int64
	EndDate   *int64

	PrimaryFlag    *bool
	ActiveFlag     *bool
	TemplateStatus *string
	VendorStatus   *string
	PriorityOrder  *int

	SchemaInfo     id.JSONMap
	TemplateFields id.JSONMap
	VendorConfig   id.JSONMap
	APIConfig      id.JSONMap

	RateLimitPerMinute *int
	RateLimitPerDay    *int
	TimeoutMs          *int
	MaxRetryAttempts   *int
	RetryBackoffMs     *int

	CostPerUnit *float64
	CostUnit    *string

	SupportedRegions []string
	SupportedFormats []string

	HealthCheckEndpoint *string
}

// ApplyTo merges the patch into a copy of existing and returns it with the
// mapping version bumped. Untouched fields survive unchanged.
func (p VendorPatch) ApplyTo(existing VendorMapping) VendorMapping {
	out := existing
	if p.VendorTemplateKey != nil {
		out.VendorTemplateKey = *p.VendorTemplateKey
	}
	if p.VendorTemplateName != nil {
		out.VendorTemplateName = *p.VendorTemplateName
	}
	if p.ReferenceKeyType != nil {
		out.ReferenceKeyType = *p.ReferenceKeyType
	}
	if p.ConsumerID != nil {
		out.ConsumerID = *p.ConsumerID
	}
	if p.StartDate != nil {
		out.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		out.EndDate = p.EndDate
	}
	if p.PrimaryFlag != nil {
		out.PrimaryFlag = *p.PrimaryFlag
	}
	if p.ActiveFlag != nil {
		out.ActiveFlag = *p.ActiveFlag
	}
	if p.TemplateStatus != nil {
		out.TemplateStatus = *p.TemplateStatus
	}
	if p.VendorStatus != nil {
		out.VendorStatus = *p.VendorStatus
	}
	if p.PriorityOrder != nil {
		out.PriorityOrder = *p.PriorityOrder
	}
	if p.SchemaInfo != nil {
		out.SchemaInfo = p.SchemaInfo
	}
	if p.TemplateFields != nil {
		out.TemplateFields = p.TemplateFields
	}
	if p.VendorConfig != nil {
		out.VendorConfig = p.VendorConfig
	}
	if p.APIConfig != nil {
		out.APIConfig = p.APIConfig
	}
	if p.RateLimitPerMinute != nil {
		out.RateLimitPerMinute = *p.RateLimitPerMinute
	}
	if p.RateLimitPerDay != nil {
		out.RateLimitPerDay = *p.RateLimitPerDay
	}
	if p.TimeoutMs != nil {
		out.TimeoutMs = *p.TimeoutMs
	}
	if p.MaxRetryAttempts != nil {
		out.MaxRetryAttempts = *p.MaxRetryAttempts
	}
	if p.RetryBackoffMs != nil {
		out.RetryBackoffMs = *p.RetryBackoffMs
	}
	if p.CostPerUnit != nil {
		out.CostPerUnit = *p.CostPerUnit
	}
	if p.CostUnit != nil {
		out.CostUnit = *p.CostUnit
	}
	if p.SupportedRegions != nil {
		out.SupportedRegions = p.SupportedRegions
	}
	if p.SupportedFormats != nil {
		out.SupportedFormats = p.SupportedFormats
	}
	if p.HealthCheckEndpoint != nil {
		out.HealthCheckEndpoint = *p.HealthCheckEndpoint
	}
	out.MappingVersion = existing.MappingVersion + 1
	return out
}

// ListFilter narrows a paged mapping listing. Nil fields are ignored.
type ListFilter struct {
	TemplateID *id.TemplateID
	VendorType *string
	Vendor     *string
	ActiveFlag *bool
}

// Page is a limit/offset window over a filtered listing.
type Page struct {
	Limit  int
	Offset int
}
