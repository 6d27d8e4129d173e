package audit

import (
	"time"

	id "templatehub/pkg/domain"
)

// Actions recorded against templates and vendor mappings.
const (
	ActionTemplateCreated  = "template.created"
	ActionTemplateUpdated  = "template.updated"
	ActionTemplateForked   = "template.version_forked"
	ActionTemplateArchived = "template.archived"
	ActionVendorCreated    = "vendor_mapping.created"
	ActionVendorUpdated    = "vendor_mapping.updated"
	ActionVendorArchived   = "vendor_mapping.archived"
	ActionVendorHealthSet  = "vendor_mapping.health_updated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         string     `json:"id"`
	Action     string     `json:"action"`
	EntityType string     `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Version    int        `json:"version,omitempty"`
	Actor      string     `json:"actor"`
	RequestID  string     `json:"requestId,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Detail     id.JSONMap `json:"detail,omitempty"`
}
