// Package store persists vendor mappings. Stores are pure I/O; parent
// existence checks, duplicate rejection, and patch semantics live in the
// service layer. Storage facts surface as pkg/platform/sentinel errors.
package store

import (
	"context"
	"time"

	"templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
)

type Store interface {
	// Insert adds a new mapping. Violating the storage uniqueness of
	// (templateId, templateVersion, vendor, vendorType) among non-archived
	// rows surfaces as sentinel.ErrConflict.
	Insert(ctx context.Context, mapping models.VendorMapping) error

	// Update rewrites a non-archived mapping. sentinel.ErrNotFound when the
	// id does not resolve.
	Update(ctx context.Context, mapping models.VendorMapping) error

	// Exists reports whether a mapping row exists at all, archived or not.
	Exists(ctx context.Context, vendorID id.VendorID) (bool, error)

	// GetByID fetches one non-archived mapping.
	GetByID(ctx context.Context, vendorID id.VendorID) (models.VendorMapping, error)

	// ListByTemplate returns all non-archived mappings under a logical
	// template, every version.
	ListByTemplate(ctx context.Context, templateID id.TemplateID) ([]models.VendorMapping, error)

	// ListByTemplateVersion returns all non-archived mappings for one
	// template version.
	ListByTemplateVersion(ctx context.Context, templateID id.TemplateID, version int) ([]models.VendorMapping, error)

	// FindPrimary returns the mapping with primaryFlag and activeFlag both
	// set for the given route. At most one such row is a data-integrity
	// precondition, not something this query enforces.
	FindPrimary(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error)

	// FindActiveForRouting returns routable mappings (active, status absent
	// or in {ACTIVE, DEGRADED}) ordered by priority ascending.
	FindActiveForRouting(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error)

	// List returns a page of non-archived mappings matching the filter.
	List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.VendorMapping, error)

	// Count returns the total matching the same filter.
	Count(ctx context.Context, filter models.ListFilter) (int64, error)

	// ExistsDuplicate reports whether a non-archived mapping with the same
	// identifying tuple already exists.
	ExistsDuplicate(ctx context.Context, templateID id.TemplateID, version int, vendor, vendorType string) (bool, error)

	// UpdateHealth sets vendor status and health fields out of band, without
	// bumping the mapping version. Returns rows affected.
	UpdateHealth(ctx context.Context, vendorID id.VendorID, vendorStatus, healthStatus string, at time.Time) (int64, error)

	// Archive soft-deletes one mapping. Returns rows flipped: 0 means not
	// found or already archived.
	Archive(ctx context.Context, vendorID id.VendorID, actor string, at time.Time) (int64, error)
}
