// Package service orchestrates master template operations: version
// assignment, duplicate-type rejection, patch merging, and archival. It keeps
// domain decisions out of handlers and I/O out of the domain model.
package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"templatehub/internal/audit"
	"templatehub/internal/platform/metrics"
	"templatehub/internal/template/models"
	id "templatehub/pkg/domain"
	dErrors "templatehub/pkg/domain-errors"
	"templatehub/pkg/platform/sentinel"
	"templatehub/pkg/requestcontext"
)

// DAO is the cached store surface the service depends on.
type DAO interface {
	Insert(ctx context.Context, template models.MasterTemplate) error
	Update(ctx context.Context, template models.MasterTemplate) error
	GetByIDAndVersion(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error)
	GetAllVersions(ctx context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error)
	FindByTypeAndVersion(ctx context.Context, templateType string, version int) (models.MasterTemplate, error)
	FindLatestActiveByType(ctx context.Context, templateType string, at time.Time) (models.MasterTemplate, error)
	ListActiveByLineOfBusiness(ctx context.Context, lineOfBusiness string, at time.Time) ([]models.MasterTemplate, error)
	List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.MasterTemplate, error)
	Count(ctx context.Context, filter models.ListFilter) (int64, error)
	NextVersion(ctx context.Context, templateID id.TemplateID) (int, error)
	Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error)
	TypeExists(ctx context.Context, templateType string) (bool, error)
	Archive(ctx context.Context, templateID id.TemplateID, version int, actor string, at time.Time) (int64, error)
}

// TemplatePage is a filtered listing plus the total across all pages.
type TemplatePage struct {
	Templates []models.MasterTemplate
	Total     int64
}

type Service struct {
	dao     DAO
	auditor *audit.Publisher
	metrics *metrics.Metrics
}

func NewService(dao DAO, auditor *audit.Publisher, m *metrics.Metrics) *Service {
	return &Service{dao: dao, auditor: auditor, metrics: m}
}

// Create registers a brand-new logical template at version 1. A non-archived
// version-1 row with the same template type already existing is a conflict.
func (s *Service) Create(ctx context.Context, template models.MasterTemplate) (models.MasterTemplate, error) {
	if template.Name == "" {
		return models.MasterTemplate{}, dErrors.New(dErrors.CodeBadRequest, "template name is required")
	}
	if template.TemplateType == "" {
		return models.MasterTemplate{}, dErrors.New(dErrors.CodeBadRequest, "template type is required")
	}

	exists, err := s.dao.TypeExists(ctx, template.TemplateType)
	if err != nil {
		return models.MasterTemplate{}, storeErr("check template type", err)
	}
	if exists {
		return models.MasterTemplate{}, dErrors.New(dErrors.CodeConflict,
			"template with type '"+template.TemplateType+"' already exists")
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	template.TemplateID = id.NewTemplateID()
	template.Version = 1
	template.ApplyDefaults()
	template.CreatedBy = actor
	template.CreatedAt = now
	template.UpdatedBy = actor
	template.UpdatedAt = now
	template.Archived = false
	template.ArchivedAt = nil

	if err := s.dao.Insert(ctx, template); err != nil {
		return models.MasterTemplate{}, storeErr("create template", err)
	}
	s.metrics.ObserveTemplateCreated()
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTemplateCreated,
		EntityType: "template",
		EntityID:   template.TemplateID.String(),
		Version:    template.Version,
		Detail:     id.JSONMap{"templateType": template.TemplateType},
	})
	return template, nil
}

// Get returns one non-archived version.
func (s *Service) Get(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error) {
	template, err := s.dao.GetByIDAndVersion(ctx, templateID, version)
	if err != nil {
		return models.MasterTemplate{}, storeErr("get template", err)
	}
	return template, nil
}

// GetAllVersions returns every non-archived version, newest first. An unknown
// template id is NotFound rather than an empty list.
func (s *Service) GetAllVersions(ctx context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error) {
	versions, err := s.dao.GetAllVersions(ctx, templateID)
	if err != nil {
		return nil, storeErr("get template versions", err)
	}
	if len(versions) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "template not found: "+templateID.String())
	}
	return versions, nil
}

// FindByTypeAndVersion fetches a template by its business type.
func (s *Service) FindByTypeAndVersion(ctx context.Context, templateType string, version int) (models.MasterTemplate, error) {
	template, err := s.dao.FindByTypeAndVersion(ctx, templateType, version)
	if err != nil {
		return models.MasterTemplate{}, storeErr("find template by type", err)
	}
	return template, nil
}

// FindLatestActiveByType returns the newest active version of a type whose
// validity window covers now.
func (s *Service) FindLatestActiveByType(ctx context.Context, templateType string) (models.MasterTemplate, error) {
	template, err := s.dao.FindLatestActiveByType(ctx, templateType, requestcontext.Now(ctx))
	if err != nil {
		return models.MasterTemplate{}, storeErr("find latest active template", err)
	}
	return template, nil
}

// ListActiveByLineOfBusiness returns currently valid active templates for one
// line of business.
func (s *Service) ListActiveByLineOfBusiness(ctx context.Context, lineOfBusiness string) ([]models.MasterTemplate, error) {
	templates, err := s.dao.ListActiveByLineOfBusiness(ctx, lineOfBusiness, requestcontext.Now(ctx))
	if err != nil {
		return nil, storeErr("list active templates", err)
	}
	return templates, nil
}

// List returns one page plus the total count. Page and count run
// concurrently; both see the same filter.
func (s *Service) List(ctx context.Context, filter models.ListFilter, page models.Page) (TemplatePage, error) {
	var (
		templates []models.MasterTemplate
		total     int64
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		templates, err = s.dao.List(groupCtx, filter, page)
		return err
	})
	group.Go(func() error {
		var err error
		total, err = s.dao.Count(groupCtx, filter)
		return err
	})
	if err := group.Wait(); err != nil {
		return TemplatePage{}, storeErr("list templates", err)
	}
	return TemplatePage{Templates: templates, Total: total}, nil
}

// UpdateInPlace patches the given version without changing its identity.
func (s *Service) UpdateInPlace(ctx context.Context, templateID id.TemplateID, version int, patch models.TemplatePatch) (models.MasterTemplate, error) {
	existing, err := s.dao.GetByIDAndVersion(ctx, templateID, version)
	if err != nil {
		return models.MasterTemplate{}, storeErr("get template for update", err)
	}

	updated := patch.ApplyTo(existing)
	updated.UpdatedBy = requestcontext.Actor(ctx)
	updated.UpdatedAt = requestcontext.Now(ctx)

	if err := s.dao.Update(ctx, updated); err != nil {
		return models.MasterTemplate{}, storeErr("update template", err)
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTemplateUpdated,
		EntityType: "template",
		EntityID:   templateID.String(),
		Version:    version,
	})
	return updated, nil
}

// ForkNewVersion clones an existing version, applies the patch, and inserts
// the clone as max(existing versions)+1. Version assignment and insert are
// not atomic here; when two forks race, the storage uniqueness constraint
// rejects the loser and the conflict surfaces unchanged.
func (s *Service) ForkNewVersion(ctx context.Context, templateID id.TemplateID, version int, patch models.TemplatePatch) (models.MasterTemplate, error) {
	existing, err := s.dao.GetByIDAndVersion(ctx, templateID, version)
	if err != nil {
		return models.MasterTemplate{}, storeErr("get template for fork", err)
	}

	next, err := s.dao.NextVersion(ctx, templateID)
	if err != nil {
		return models.MasterTemplate{}, storeErr("next template version", err)
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Actor(ctx)
	forked := patch.ApplyTo(existing)
	forked.Version = next
	forked.CreatedBy = actor
	forked.CreatedAt = now
	forked.UpdatedBy = actor
	forked.UpdatedAt = now
	forked.Archived = false
	forked.ArchivedAt = nil

	if err := s.dao.Insert(ctx, forked); err != nil {
		return models.MasterTemplate{}, storeErr("fork template version", err)
	}
	s.metrics.ObserveTemplateVersionForked()
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTemplateForked,
		EntityType: "template",
		EntityID:   templateID.String(),
		Version:    next,
		Detail:     id.JSONMap{"forkedFromVersion": version},
	})
	return forked, nil
}

// Archive soft-deletes one version. A version that never existed is
// NotFound; re-archiving an already-archived version is a no-op success, so
// the existence check deliberately includes archived rows.
func (s *Service) Archive(ctx context.Context, templateID id.TemplateID, version int) error {
	exists, err := s.dao.Exists(ctx, templateID, version)
	if err != nil {
		return storeErr("check template for archive", err)
	}
	if !exists {
		return dErrors.New(dErrors.CodeNotFound, "template not found")
	}

	if _, err := s.dao.Archive(ctx, templateID, version, requestcontext.Actor(ctx), requestcontext.Now(ctx)); err != nil {
		return storeErr("archive template", err)
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     audit.ActionTemplateArchived,
		EntityType: "template",
		EntityID:   templateID.String(),
		Version:    version,
	})
	return nil
}

// Exists reports whether a non-archived (templateId, version) row resolves.
// The vendor mapping service uses it as its parent-existence check.
func (s *Service) Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error) {
	_, err := s.dao.GetByIDAndVersion(ctx, templateID, version)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, storeErr("check template exists", err)
}

// storeErr maps storage facts onto the domain error taxonomy. Anything that
// is not a known fact is an availability problem and propagates as such.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "template not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "template version already exists")
	case dErrors.HasCode(err, dErrors.CodeNotFound),
		dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeBadRequest):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed")
	}
}
