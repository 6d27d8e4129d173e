// Package service orchestrates vendor mapping operations: parent template
// checks, duplicate-tuple rejection, patch merging, health updates, and
// archival.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"templatehub/internal/audit"
	"templatehub/internal/platform/metrics"
	"templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
	dErrors "templatehub/pkg/domain-errors"
	"templatehub/pkg/platform/sentinel"
	platformstrings "templatehub/pkg/platform/strings"
	"templatehub/pkg/requestcontext"
)

// DAO is the cached store surface the service depends on.
type DAO interface {
	Insert(ctx context.Context, mapping models.VendorMapping) error
	Update(ctx context.Context, mapping models.VendorMapping) error
	Exists(ctx context.Context, vendorID id.VendorID) (bool, error)
	GetByID(ctx context.Context, vendorID id.VendorID) (models.VendorMapping, error)
	ListByTemplate(ctx context.Context, templateID id.TemplateID) ([]models.VendorMapping, error)
	ListByTemplateVersion(ctx context.Context, templateID id.TemplateID, version int) ([]models.VendorMapping, error)
	FindPrimary(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error)
	FindActiveForRouting(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error)
	List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.VendorMapping, error)
	Count(ctx context.Context, filter models.ListFilter) (int64, error)
	ExistsDuplicate(ctx context.Context, templateID id.TemplateID, version int, vendor, vendorType string) (bool, error)
	UpdateHealth(ctx context.Context, vendorID id.VendorID, templateID id.TemplateID, vendorStatus, healthStatus string, at time.Time) (int64, error)
	Archive(ctx context.Context, vendorID id.VendorID, templateID id.TemplateID, actor string, at time.Time) (int64, error)
}

// TemplateReader is the slice of the template service needed to verify that
// a referenced template version exists before hanging a mapping off it.
type TemplateReader interface {
	Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error)
}

// MappingPage is a filtered listing plus the total across all pages.
type MappingPage struct {
	Mappings []models.VendorMapping
	Total    int64
}

type Service struct {
	dao       DAO
	templates TemplateReader
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(dao DAO, templates TemplateReader, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{dao: dao, templates: templates, auditor: auditor, metrics: m, logger: logger}
}

// Create registers a new mapping. The referenced template version must exist
// (checked first so the caller gets NotFound rather than a dangling-reference
// failure), and the identifying tuple must not already be mapped.
func (s *Service) Create(ctx context.Context, mapping models.VendorMapping) (models.VendorMapping, error) {
	if mapping.Vendor == "" {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeBadRequest, "vendor is required")
	}
	if mapping.VendorType == "" {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeBadRequest, "vendor type is required")
	}

	exists, err := s.templates.Exists(ctx, mapping.TemplateID, mapping.TemplateVersion)
	if err != nil {
		return models.VendorMapping{}, err
	}
	if !exists {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeNotFound,
			"template not found: id="+mapping.TemplateID.String())
	}

	duplicate, err := s.dao.ExistsDuplicate(ctx, mapping.TemplateID, mapping.TemplateVersion, mapping.Vendor, mapping.VendorType)
	if err != nil {
		return models.VendorMapping{}, storeErr("check duplicate mapping", err)
	}
	if duplicate {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeConflict,
			"vendor mapping already exists for vendor="+mapping.Vendor+", type="+mapping.VendorType)
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	mapping.VendorID = id.NewVendorID()
	mapping.SupportedRegions = platformstrings.DedupeAndTrim(mapping.SupportedRegions)
	mapping.SupportedFormats = platformstrings.DedupeAndTrimLower(mapping.SupportedFormats)
	mapping.ApplyDefaults(now)
	mapping.CreatedBy = actor
	mapping.CreatedAt = now
	mapping.UpdatedBy = actor
	mapping.UpdatedAt = now
	mapping.Archived = false
	mapping.ArchivedAt = nil

	if err := s.dao.Insert(ctx, mapping); err != nil {
		return models.VendorMapping{}, storeErr("create vendor mapping", err)
	}
	s.metrics.ObserveVendorMappingCreated()
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionVendorCreated,
		EntityType: "vendor_mapping",
		EntityID:   mapping.VendorID.String(),
		Detail: id.JSONMap{
			"templateId":      mapping.TemplateID.String(),
			"templateVersion": mapping.TemplateVersion,
			"vendor":          mapping.Vendor,
			"vendorType":      mapping.VendorType,
		},
	})
	return mapping, nil
}

// Get returns one non-archived mapping.
func (s *Service) Get(ctx context.Context, vendorID id.VendorID) (models.VendorMapping, error) {
	mapping, err := s.dao.GetByID(ctx, vendorID)
	if err != nil {
		return models.VendorMapping{}, storeErr("get vendor mapping", err)
	}
	return mapping, nil
}

// ListByTemplate returns all mappings under a logical template, across
// every version.
func (s *Service) ListByTemplate(ctx context.Context, templateID id.TemplateID) ([]models.VendorMapping, error) {
	mappings, err := s.dao.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, storeErr("list vendor mappings by template", err)
	}
	return mappings, nil
}

// ListByTemplateVersion returns all mappings for one template version.
func (s *Service) ListByTemplateVersion(ctx context.Context, templateID id.TemplateID, version int) ([]models.VendorMapping, error) {
	mappings, err := s.dao.ListByTemplateVersion(ctx, templateID, version)
	if err != nil {
		return nil, storeErr("list vendor mappings", err)
	}
	return mappings, nil
}

// List returns one page plus the total count, computed concurrently.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page models.Page) (MappingPage, error) {
	var (
		mappings []models.VendorMapping
		total    int64
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		mappings, err = s.dao.List(groupCtx, filter, page)
		return err
	})
	group.Go(func() error {
		var err error
		total, err = s.dao.Count(groupCtx, filter)
		return err
	})
	if err := group.Wait(); err != nil {
		return MappingPage{}, storeErr("list vendor mappings", err)
	}
	return MappingPage{Mappings: mappings, Total: total}, nil
}

// Update patches a mapping. The mapping version bumps by one; the identity
// tuple is immutable.
func (s *Service) Update(ctx context.Context, vendorID id.VendorID, patch models.VendorPatch) (models.VendorMapping, error) {
	existing, err := s.dao.GetByID(ctx, vendorID)
	if err != nil {
		return models.VendorMapping{}, storeErr("get vendor mapping for update", err)
	}

	updated := patch.ApplyTo(existing)
	updated.SupportedRegions = platformstrings.DedupeAndTrim(updated.SupportedRegions)
	updated.SupportedFormats = platformstrings.DedupeAndTrimLower(updated.SupportedFormats)
	updated.UpdatedBy = requestcontext.Actor(ctx)
	updated.UpdatedAt = requestcontext.Now(ctx)

	if err := s.dao.Update(ctx, updated); err != nil {
		return models.VendorMapping{}, storeErr("update vendor mapping", err)
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionVendorUpdated,
		EntityType: "vendor_mapping",
		EntityID:   vendorID.String(),
		Version:    updated.MappingVersion,
	})
	return updated, nil
}

// UpdateHealth records an out-of-band health probe result. It does not bump
// the mapping version.
func (s *Service) UpdateHealth(ctx context.Context, vendorID id.VendorID, vendorStatus, healthStatus string) error {
	existing, err := s.dao.GetByID(ctx, vendorID)
	if err != nil {
		return storeErr("get vendor mapping for health update", err)
	}

	count, err := s.dao.UpdateHealth(ctx, vendorID, existing.TemplateID, vendorStatus, healthStatus, requestcontext.Now(ctx))
	if err != nil {
		return storeErr("update vendor health", err)
	}
	if count == 0 {
		return dErrors.New(dErrors.CodeNotFound, "vendor mapping not found")
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionVendorHealthSet,
		EntityType: "vendor_mapping",
		EntityID:   vendorID.String(),
		Detail:     id.JSONMap{"vendorStatus": vendorStatus, "healthStatus": healthStatus},
	})
	return nil
}

// Archive soft-deletes a mapping. A mapping that never existed is NotFound;
// re-archiving is a no-op success.
func (s *Service) Archive(ctx context.Context, vendorID id.VendorID) error {
	exists, err := s.dao.Exists(ctx, vendorID)
	if err != nil {
		return storeErr("check vendor mapping for archive", err)
	}
	if !exists {
		return dErrors.New(dErrors.CodeNotFound, "vendor mapping not found")
	}

	// The template id is needed for list-cache invalidation; an archived row
	// no longer resolves through GetByID, which is exactly the no-op case.
	mapping, err := s.dao.GetByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return storeErr("get vendor mapping for archive", err)
	}

	if _, err := s.dao.Archive(ctx, vendorID, mapping.TemplateID, requestcontext.Actor(ctx), requestcontext.Now(ctx)); err != nil {
		return storeErr("archive vendor mapping", err)
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionVendorArchived,
		EntityType: "vendor_mapping",
		EntityID:   vendorID.String(),
	})
	return nil
}

// FindPrimary returns the single active primary mapping for a route. More
// than one is a data-integrity violation upstream; it is logged and the
// deterministic first row wins.
func (s *Service) FindPrimary(ctx context.Context, templateID id.TemplateID, version int, vendorType string) (models.VendorMapping, error) {
	primaries, err := s.dao.FindPrimary(ctx, templateID, version, vendorType)
	if err != nil {
		return models.VendorMapping{}, storeErr("find primary vendor mapping", err)
	}
	if len(primaries) == 0 {
		return models.VendorMapping{}, dErrors.New(dErrors.CodeNotFound, "no primary vendor mapping")
	}
	if len(primaries) > 1 {
		s.logger.WarnContext(ctx, "multiple primary vendor mappings",
			"request_id", requestcontext.RequestID(ctx),
			"template_id", templateID.String(),
			"template_version", version,
			"vendor_type", vendorType,
			"count", len(primaries),
		)
	}
	return primaries[0], nil
}

// FindActiveForRouting returns the failover candidates for a route, priority
// ascending. Callers re-sort through the routing selector for a fully
// deterministic order.
func (s *Service) FindActiveForRouting(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	mappings, err := s.dao.FindActiveForRouting(ctx, templateID, version, vendorType)
	if err != nil {
		return nil, storeErr("find vendor mappings for routing", err)
	}
	return mappings, nil
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "vendor mapping not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "vendor mapping already exists")
	case dErrors.HasCode(err, dErrors.CodeNotFound),
		dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeBadRequest):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed")
	}
}
