// Package dao puts a read-through cache in front of the vendor mapping
// store. Point lookups by mapping id are cached; routing lists are cached per
// (templateId, version, vendorType) and dropped wholesale for a template on
// any write under it, since list entries cannot be surgically patched.
package dao

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"templatehub/internal/cache"
	"templatehub/internal/platform/metrics"
	"templatehub/internal/vendormapping/models"
	"templatehub/internal/vendormapping/store"
	id "templatehub/pkg/domain"
)

type DAO struct {
	store  store.Store
	byID   *cache.Cache[id.VendorID, models.VendorMapping]
	routes *cache.Cache[string, []models.VendorMapping]

	// routeKeys tracks which route cache keys exist per template, so a write
	// under one template can drop exactly its list entries.
	mu        sync.Mutex
	routeKeys map[id.TemplateID][]string
}

func New(st store.Store, cfg cache.Config, m *metrics.Metrics) *DAO {
	routesCfg := cfg
	routesCfg.Name = cfg.Name + "_routes"
	d := &DAO{
		store:     st,
		byID:      cache.New[id.VendorID, models.VendorMapping](cfg, m),
		routes:    cache.New[string, []models.VendorMapping](routesCfg, m),
		routeKeys: make(map[id.TemplateID][]string),
	}
	// Keys the route cache ages out on its own must not linger in the
	// tracking map.
	d.routes.OnEvicted(d.untrackRouteKey)
	return d
}

func routeKey(templateID id.TemplateID, version int, vendorType string) string {
	return templateID.String() + ":" + strconv.Itoa(version) + ":" + vendorType
}

func (d *DAO) GetByID(ctx context.Context, vendorID id.VendorID) (models.VendorMapping, error) {
	if cached, ok := d.byID.Get(vendorID); ok {
		return cached, nil
	}
	mapping, err := d.store.GetByID(ctx, vendorID)
	if err != nil {
		return models.VendorMapping{}, err
	}
	d.byID.Set(vendorID, mapping)
	return mapping, nil
}

func (d *DAO) Exists(ctx context.Context, vendorID id.VendorID) (bool, error) {
	return d.store.Exists(ctx, vendorID)
}

func (d *DAO) ListByTemplate(ctx context.Context, templateID id.TemplateID) ([]models.VendorMapping, error) {
	return d.store.ListByTemplate(ctx, templateID)
}

func (d *DAO) ListByTemplateVersion(ctx context.Context, templateID id.TemplateID, version int) ([]models.VendorMapping, error) {
	return d.store.ListByTemplateVersion(ctx, templateID, version)
}

func (d *DAO) FindPrimary(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	return d.store.FindPrimary(ctx, templateID, version, vendorType)
}

// FindActiveForRouting serves the hot routing path through the list cache.
func (d *DAO) FindActiveForRouting(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	key := routeKey(templateID, version, vendorType)
	if cached, ok := d.routes.Get(key); ok {
		return cached, nil
	}
	mappings, err := d.store.FindActiveForRouting(ctx, templateID, version, vendorType)
	if err != nil {
		return nil, err
	}
	d.routes.Set(key, mappings)
	d.trackRouteKey(templateID, key)
	return mappings, nil
}

func (d *DAO) List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.VendorMapping, error) {
	return d.store.List(ctx, filter, page)
}

func (d *DAO) Count(ctx context.Context, filter models.ListFilter) (int64, error) {
	return d.store.Count(ctx, filter)
}

func (d *DAO) ExistsDuplicate(ctx context.Context, templateID id.TemplateID, version int, vendor, vendorType string) (bool, error) {
	return d.store.ExistsDuplicate(ctx, templateID, version, vendor, vendorType)
}

func (d *DAO) Insert(ctx context.Context, mapping models.VendorMapping) error {
	if err := d.store.Insert(ctx, mapping); err != nil {
		return err
	}
	d.byID.Set(mapping.VendorID, mapping)
	d.invalidateRoutes(mapping.TemplateID)
	return nil
}

func (d *DAO) Update(ctx context.Context, mapping models.VendorMapping) error {
	if err := d.store.Update(ctx, mapping); err != nil {
		return err
	}
	d.byID.Set(mapping.VendorID, mapping)
	d.invalidateRoutes(mapping.TemplateID)
	return nil
}

// UpdateHealth refreshes health fields out of band. The point cache entry is
// dropped rather than patched; routing lists are invalidated because a status
// change can add or remove the mapping from the routable set.
func (d *DAO) UpdateHealth(ctx context.Context, vendorID id.VendorID, templateID id.TemplateID, vendorStatus, healthStatus string, at time.Time) (int64, error) {
	count, err := d.store.UpdateHealth(ctx, vendorID, vendorStatus, healthStatus, at)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		d.byID.Delete(vendorID)
		d.invalidateRoutes(templateID)
	}
	return count, nil
}

func (d *DAO) Archive(ctx context.Context, vendorID id.VendorID, templateID id.TemplateID, actor string, at time.Time) (int64, error) {
	count, err := d.store.Archive(ctx, vendorID, actor, at)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		d.byID.Delete(vendorID)
		d.invalidateRoutes(templateID)
	}
	return count, nil
}

func (d *DAO) trackRouteKey(templateID id.TemplateID, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.routeKeys[templateID] {
		if existing == key {
			return
		}
	}
	d.routeKeys[templateID] = append(d.routeKeys[templateID], key)
}

func (d *DAO) untrackRouteKey(key string) {
	prefix, _, ok := strings.Cut(key, ":")
	if !ok {
		return
	}
	templateID, err := id.ParseTemplateID(prefix)
	if err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := d.routeKeys[templateID]
	for i, existing := range keys {
		if existing == key {
			d.routeKeys[templateID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(d.routeKeys[templateID]) == 0 {
		delete(d.routeKeys, templateID)
	}
}

// invalidateRoutes drops every cached routing list under one template.
func (d *DAO) invalidateRoutes(templateID id.TemplateID) {
	d.mu.Lock()
	keys := d.routeKeys[templateID]
	delete(d.routeKeys, templateID)
	d.mu.Unlock()
	for _, key := range keys {
		d.routes.Delete(key)
	}
}

// CacheStats reports both caches for the ops endpoint.
func (d *DAO) CacheStats() []cache.Stats {
	return []cache.Stats{d.byID.Stats(), d.routes.Stats()}
}

// Stop halts the cache expiration loops.
func (d *DAO) Stop() {
	d.byID.Stop()
	d.routes.Stop()
}
