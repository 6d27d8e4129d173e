// Package dao puts a read-through cache in front of the template store.
// Point lookups by (templateId, version) are cached; list and count queries
// always hit the store. Writes go through to the store and refresh the cache;
// archive invalidates. Misses and store errors are never cached.
package dao

import (
	"context"
	"strconv"
	"time"

	"templatehub/internal/cache"
	"templatehub/internal/platform/metrics"
	"templatehub/internal/template/models"
	"templatehub/internal/template/store"
	id "templatehub/pkg/domain"
)

// DAO wraps a Store with a cache keyed by the composite
// "templateId:version" string for point lookups.
type DAO struct {
	store     store.Store
	byVersion *cache.Cache[string, models.MasterTemplate]
}

func New(st store.Store, cfg cache.Config, m *metrics.Metrics) *DAO {
	return &DAO{
		store:     st,
		byVersion: cache.New[string, models.MasterTemplate](cfg, m),
	}
}

func cacheKey(templateID id.TemplateID, version int) string {
	return templateID.String() + ":" + strconv.Itoa(version)
}

// Exists answers from the cache when the version is already held; a cached
// entry is always a live row since Archive invalidates.
func (d *DAO) Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error) {
	if _, ok := d.byVersion.Get(cacheKey(templateID, version)); ok {
		return true, nil
	}
	return d.store.Exists(ctx, templateID, version)
}

func (d *DAO) GetByIDAndVersion(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error) {
	key := cacheKey(templateID, version)
	if cached, ok := d.byVersion.Get(key); ok {
		return cached, nil
	}
	template, err := d.store.GetByIDAndVersion(ctx, templateID, version)
	if err != nil {
		return models.MasterTemplate{}, err
	}
	d.byVersion.Set(key, template)
	return template, nil
}

func (d *DAO) GetAllVersions(ctx context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error) {
	return d.store.GetAllVersions(ctx, templateID)
}

func (d *DAO) FindByTypeAndVersion(ctx context.Context, templateType string, version int) (models.MasterTemplate, error) {
	return d.store.FindByTypeAndVersion(ctx, templateType, version)
}

func (d *DAO) FindLatestActiveByType(ctx context.Context, templateType string, at time.Time) (models.MasterTemplate, error) {
	return d.store.FindLatestActiveByType(ctx, templateType, at)
}

func (d *DAO) ListActiveByLineOfBusiness(ctx context.Context, lineOfBusiness string, at time.Time) ([]models.MasterTemplate, error) {
	return d.store.ListActiveByLineOfBusiness(ctx, lineOfBusiness, at)
}

func (d *DAO) List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.MasterTemplate, error) {
	return d.store.List(ctx, filter, page)
}

func (d *DAO) Count(ctx context.Context, filter models.ListFilter) (int64, error) {
	return d.store.Count(ctx, filter)
}

// Insert writes a new version through to the store and caches it.
func (d *DAO) Insert(ctx context.Context, template models.MasterTemplate) error {
	if err := d.store.Insert(ctx, template); err != nil {
		return err
	}
	d.byVersion.Set(cacheKey(template.TemplateID, template.Version), template)
	return nil
}

// Update rewrites a version through to the store and refreshes the cache.
func (d *DAO) Update(ctx context.Context, template models.MasterTemplate) error {
	if err := d.store.Update(ctx, template); err != nil {
		return err
	}
	d.byVersion.Set(cacheKey(template.TemplateID, template.Version), template)
	return nil
}

// Archive soft-deletes a version and drops its cache entries, but only when a
// row was actually flipped: a zero count means nothing changed, so the cache
// is still accurate.
func (d *DAO) Archive(ctx context.Context, templateID id.TemplateID, version int, actor string, at time.Time) (int64, error) {
	count, err := d.store.Archive(ctx, templateID, version, actor, at)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		d.Invalidate(templateID, version)
	}
	return count, nil
}

func (d *DAO) NextVersion(ctx context.Context, templateID id.TemplateID) (int, error) {
	return d.store.NextVersion(ctx, templateID)
}

func (d *DAO) TypeExists(ctx context.Context, templateType string) (bool, error) {
	return d.store.TypeExists(ctx, templateType)
}

// Invalidate drops the cache entry for one template version.
func (d *DAO) Invalidate(templateID id.TemplateID, version int) {
	d.byVersion.Delete(cacheKey(templateID, version))
}

// CacheStats reports the cache for the ops endpoint.
func (d *DAO) CacheStats() []cache.Stats {
	return []cache.Stats{d.byVersion.Stats()}
}

// Stop halts the cache expiration loop.
func (d *DAO) Stop() {
	d.byVersion.Stop()
}
