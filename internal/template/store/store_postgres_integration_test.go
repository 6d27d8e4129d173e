//go:build integration

package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"templatehub/internal/template/models"
	id "templatehub/pkg/domain"
	"templatehub/pkg/platform/sentinel"
	"templatehub/pkg/testutil/containers"
)

func newIntegrationStore(t *testing.T) (*PostgresStore, *containers.PostgresContainer) {
	t.Helper()
	pc := containers.NewPostgresContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgres(pc.DB, logger), pc
}

func newTemplate(templateType string) models.MasterTemplate {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.MasterTemplate{
		TemplateID:        id.NewTemplateID(),
		Version:           1,
		Name:              "Monthly Statement",
		TemplateType:      templateType,
		LineOfBusiness:    "BANKING",
		CommunicationType: "LETTER",
		LanguageCode:      "en",
		ActiveFlag:        true,
		Variables:         id.JSONMap{"accountId": "string"},
		StartDate:         now.Add(-time.Hour).UnixMilli(),
		RecordStatus:      "A",
		CreatedBy:         "alice",
		CreatedAt:         now,
		UpdatedBy:         "alice",
		UpdatedAt:         now,
	}
}

func TestPostgresStore_InsertAndReadBack(t *testing.T) {
	st, _ := newIntegrationStore(t)
	ctx := context.Background()

	template := newTemplate("STATEMENT")
	require.NoError(t, st.Insert(ctx, template))

	got, err := st.GetByIDAndVersion(ctx, template.TemplateID, 1)
	require.NoError(t, err)
	assert.Equal(t, template.TemplateID, got.TemplateID)
	assert.Equal(t, "Monthly Statement", got.Name)
	assert.Equal(t, id.JSONMap{"accountId": "string"}, got.Variables)
	assert.WithinDuration(t, template.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestPostgresStore_UniquenessSpansLiveRowsOnly(t *testing.T) {
	st, _ := newIntegrationStore(t)
	ctx := context.Background()

	first := newTemplate("STATEMENT")
	require.NoError(t, st.Insert(ctx, first))

	second := newTemplate("STATEMENT")
	require.ErrorIs(t, st.Insert(ctx, second), sentinel.ErrConflict)

	affected, err := st.Archive(ctx, first.TemplateID, 1, "alice", time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	require.NoError(t, st.Insert(ctx, second), "archived identity frees the slot")
}

func TestPostgresStore_VersionLifecycle(t *testing.T) {
	st, _ := newIntegrationStore(t)
	ctx := context.Background()

	template := newTemplate("WELCOME_KIT")
	require.NoError(t, st.Insert(ctx, template))

	next, err := st.NextVersion(ctx, template.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	v2 := template
	v2.Version = 2
	v2.Name = "Welcome Kit v2"
	require.NoError(t, st.Insert(ctx, v2))

	versions, err := st.GetAllVersions(ctx, template.TemplateID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version, "newest first")

	affected, err := st.Archive(ctx, template.TemplateID, 1, "bob", time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	_, err = st.GetByIDAndVersion(ctx, template.TemplateID, 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Archived versions still count toward numbering.
	next, err = st.NextVersion(ctx, template.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	affected, err = st.Archive(ctx, template.TemplateID, 1, "bob", time.Now())
	require.NoError(t, err)
	assert.Zero(t, affected, "second archive flips nothing")
}

func TestPostgresStore_SearchAndListing(t *testing.T) {
	st, pc := newIntegrationStore(t)
	ctx := context.Background()
	now := time.Now()

	statement := newTemplate("STATEMENT")
	require.NoError(t, st.Insert(ctx, statement))

	notice := newTemplate("TAX_NOTICE")
	notice.LineOfBusiness = "TAX"
	notice.ActiveFlag = false
	require.NoError(t, st.Insert(ctx, notice))

	exists, err := st.TypeExists(ctx, "STATEMENT")
	require.NoError(t, err)
	assert.True(t, exists)

	byType, err := st.FindByTypeAndVersion(ctx, "STATEMENT", 1)
	require.NoError(t, err)
	assert.Equal(t, statement.TemplateID, byType.TemplateID)

	latest, err := st.FindLatestActiveByType(ctx, "STATEMENT", now)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Version)

	_, err = st.FindLatestActiveByType(ctx, "TAX_NOTICE", now)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "inactive templates never match")

	banking, err := st.ListActiveByLineOfBusiness(ctx, "BANKING", now)
	require.NoError(t, err)
	require.Len(t, banking, 1)

	active := true
	page, err := st.List(ctx, models.ListFilter{ActiveFlag: &active}, models.Page{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, statement.TemplateID, page[0].TemplateID)

	total, err := st.Count(ctx, models.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	require.NoError(t, pc.TruncateAll(ctx))
	total, err = st.Count(ctx, models.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
