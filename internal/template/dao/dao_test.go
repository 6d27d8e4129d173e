package dao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"templatehub/internal/cache"
	"templatehub/internal/template/models"
	"templatehub/internal/template/store"
	id "templatehub/pkg/domain"
)

// countingStore counts reads so tests can tell cache hits from misses.
type countingStore struct {
	store.Store
	pointReads   int
	existsChecks int
}

func (c *countingStore) GetByIDAndVersion(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error) {
	c.pointReads++
	return c.Store.GetByIDAndVersion(ctx, templateID, version)
}

func (c *countingStore) Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error) {
	c.existsChecks++
	return c.Store.Exists(ctx, templateID, version)
}

func newTestDAO(t *testing.T) (*DAO, *countingStore) {
	t.Helper()
	counting := &countingStore{Store: store.NewInMemoryStore()}
	d := New(counting, cache.Config{Name: "template", TTL: time.Minute, MaxEntries: 100}, nil)
	t.Cleanup(d.Stop)
	return d, counting
}

func seedTemplate(t *testing.T, d *DAO) models.MasterTemplate {
	t.Helper()
	template := models.MasterTemplate{
		TemplateID:   id.NewTemplateID(),
		Version:      1,
		Name:         "Welcome Letter",
		TemplateType: "WELCOME",
		ActiveFlag:   true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, d.Insert(context.Background(), template))
	return template
}

func TestDAO_GetByIDAndVersion_ReadThrough(t *testing.T) {
	d, counting := newTestDAO(t)
	template := seedTemplate(t, d)
	ctx := context.Background()

	// Insert already primed the cache, so neither read hits the store.
	for range 2 {
		got, err := d.GetByIDAndVersion(ctx, template.TemplateID, 1)
		require.NoError(t, err)
		assert.Equal(t, template.Name, got.Name)
	}
	assert.Zero(t, counting.pointReads)

	// After invalidation the first read misses, the second is served hot.
	d.Invalidate(template.TemplateID, 1)
	for range 2 {
		_, err := d.GetByIDAndVersion(ctx, template.TemplateID, 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, counting.pointReads)
}

func TestDAO_Update_RefreshesCache(t *testing.T) {
	d, counting := newTestDAO(t)
	template := seedTemplate(t, d)
	ctx := context.Background()

	template.Name = "Welcome Letter v2"
	require.NoError(t, d.Update(ctx, template))

	got, err := d.GetByIDAndVersion(ctx, template.TemplateID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Welcome Letter v2", got.Name)
	assert.Zero(t, counting.pointReads, "updated entry must be served from cache")
}

func TestDAO_Archive_InvalidatesOnlyWhenRowsChanged(t *testing.T) {
	d, _ := newTestDAO(t)
	template := seedTemplate(t, d)
	ctx := context.Background()
	now := time.Now()

	count, err := d.Archive(ctx, template.TemplateID, 1, "alice", now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = d.GetByIDAndVersion(ctx, template.TemplateID, 1)
	assert.Error(t, err, "archived version must not be served from cache")

	// Second archive is a no-op at the store, so nothing to invalidate.
	count, err = d.Archive(ctx, template.TemplateID, 1, "alice", now)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDAO_CacheStats(t *testing.T) {
	d, _ := newTestDAO(t)
	seedTemplate(t, d)

	stats := d.CacheStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "template", stats[0].Name)
	assert.EqualValues(t, 1, stats[0].Size)
}

func TestDAO_Exists_ServedFromCache(t *testing.T) {
	d, counting := newTestDAO(t)
	template := seedTemplate(t, d)
	ctx := context.Background()

	ok, err := d.Exists(ctx, template.TemplateID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, counting.existsChecks, "cached version must not reach the store")

	// An uncached version falls through to the store.
	ok, err = d.Exists(ctx, template.TemplateID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, counting.existsChecks)
}
