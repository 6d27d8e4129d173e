// Package store persists master templates. Stores are pure I/O: version
// assignment, duplicate-type checks, and patch semantics live in the service
// layer. Stores report storage facts through pkg/platform/sentinel errors.
package store

import (
	"context"
	"time"

	"templatehub/internal/template/models"
	id "templatehub/pkg/domain"
)

type Store interface {
	// Insert adds a brand-new (templateId, version) row. A primary key
	// collision, such as two concurrent forks racing to the same version
	// number, surfaces as sentinel.ErrConflict.
	Insert(ctx context.Context, template models.MasterTemplate) error

	// Update rewrites the mutable fields of an existing non-archived row.
	// sentinel.ErrNotFound when the row does not exist or is archived.
	Update(ctx context.Context, template models.MasterTemplate) error

	// Exists reports whether a (templateId, version) row exists at all,
	// archived or not. Archive uses it to tell "never existed" apart from
	// "already archived".
	Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error)

	// GetByIDAndVersion fetches one non-archived version.
	GetByIDAndVersion(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error)

	// GetAllVersions returns every non-archived version of a logical
	// template, newest first.
	GetAllVersions(ctx context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error)

	// FindByTypeAndVersion fetches the non-archived row with the given
	// template type at the given version.
	FindByTypeAndVersion(ctx context.Context, templateType string, version int) (models.MasterTemplate, error)

	// FindLatestActiveByType returns the highest active, non-archived
	// version of a type whose validity window covers the given instant.
	FindLatestActiveByType(ctx context.Context, templateType string, at time.Time) (models.MasterTemplate, error)

	// ListActiveByLineOfBusiness returns active, non-archived templates for
	// one line of business whose validity window covers the given instant.
	ListActiveByLineOfBusiness(ctx context.Context, lineOfBusiness string, at time.Time) ([]models.MasterTemplate, error)

	// List returns a page of non-archived templates matching the filter.
	List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.MasterTemplate, error)

	// Count returns the total number of non-archived templates matching the
	// filter, for pagination metadata.
	Count(ctx context.Context, filter models.ListFilter) (int64, error)

	// NextVersion returns max(existing versions)+1 for a logical template,
	// or 1 when none exist. Archived versions still count: version numbers
	// are never reused.
	NextVersion(ctx context.Context, templateID id.TemplateID) (int, error)

	// TypeExists reports whether a non-archived version-1 row with this
	// template type already exists.
	TypeExists(ctx context.Context, templateType string) (bool, error)

	// Archive soft-deletes one version, recording actor and time. Returns
	// the number of rows flipped: 0 means not found or already archived.
	Archive(ctx context.Context, templateID id.TemplateID, version int, actor string, at time.Time) (int64, error)
}
