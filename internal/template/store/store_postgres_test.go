package store

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"templatehub/internal/template/models"
	id "templatehub/pkg/domain"
	"templatehub/pkg/platform/sentinel"
)

var templateTestColumns = []string{
	"master_template_id", "template_version", "legacy_template_id", "legacy_template_name",
	"template_name", "display_name", "template_description", "line_of_business",
	"template_category", "template_type", "language_code", "owning_dept",
	"communication_type", "workflow", "notification_needed", "regulatory_flag",
	"message_center_doc_flag", "active_flag", "shared_document_flag", "single_document_flag",
	"sharing_scope", "template_variables", "data_extraction_config", "document_matching_config",
	"eligibility_criteria", "access_control", "required_fields", "template_config",
	"start_date", "end_date", "record_status", "created_by", "created_timestamp",
	"updated_by", "updated_timestamp", "archive_indicator", "archive_timestamp",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgres(db, logger), mock
}

func sampleTemplate() models.MasterTemplate {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.MasterTemplate{
		TemplateID:        id.NewTemplateID(),
		Version:           1,
		Name:              "Monthly Statement",
		TemplateType:      "STATEMENT",
		LineOfBusiness:    "BANKING",
		LanguageCode:      "en",
		CommunicationType: "LETTER",
		Workflow:          "2_EYES",
		ActiveFlag:        true,
		Variables:         id.JSONMap{"accountId": "string"},
		StartDate:         now.UnixMilli(),
		RecordStatus:      models.RecordStatusDraft,
		CreatedBy:         "alice",
		CreatedAt:         now,
		UpdatedBy:         "alice",
		UpdatedAt:         now,
	}
}

func templateRow(template models.MasterTemplate, variablesJSON []byte) *sqlmock.Rows {
	return sqlmock.NewRows(templateTestColumns).AddRow(
		template.TemplateID.String(), template.Version,
		template.LegacyTemplateID, template.LegacyTemplateName,
		template.Name, template.DisplayName, template.Description, template.LineOfBusiness,
		template.Category, template.TemplateType, template.LanguageCode, template.OwningDept,
		template.CommunicationType, template.Workflow, template.NotificationNeeded, template.RegulatoryFlag,
		template.MessageCenterDocFlag, template.ActiveFlag, template.SharedDocumentFlag, template.SingleDocumentFlag,
		template.SharingScope, variablesJSON, nil, nil, nil, nil, nil, nil,
		template.StartDate, nil, template.RecordStatus,
		template.CreatedBy, template.CreatedAt, template.UpdatedBy, template.UpdatedAt,
		template.Archived, nil,
	)
}

func TestPostgresStore_Insert(t *testing.T) {
	store, mock := newMockStore(t)
	template := sampleTemplate()

	mock.ExpectExec(`INSERT INTO document_hub.master_template_definition`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Insert(context.Background(), template))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert_UniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO document_hub.master_template_definition`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Insert(context.Background(), sampleTemplate())
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_ZeroRowsIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE document_hub.master_template_definition SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), sampleTemplate())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByIDAndVersion(t *testing.T) {
	store, mock := newMockStore(t)
	template := sampleTemplate()

	mock.ExpectQuery(`FROM document_hub.master_template_definition`).
		WithArgs(template.TemplateID.String(), 1).
		WillReturnRows(templateRow(template, []byte(`{"accountId":"string"}`)))

	got, err := store.GetByIDAndVersion(context.Background(), template.TemplateID, 1)
	require.NoError(t, err)
	assert.Equal(t, template.TemplateID, got.TemplateID)
	assert.Equal(t, "Monthly Statement", got.Name)
	assert.Equal(t, id.JSONMap{"accountId": "string"}, got.Variables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByIDAndVersion_NoRows(t *testing.T) {
	store, mock := newMockStore(t)
	templateID := id.NewTemplateID()

	mock.ExpectQuery(`FROM document_hub.master_template_definition`).
		WithArgs(templateID.String(), 3).
		WillReturnRows(sqlmock.NewRows(templateTestColumns))

	_, err := store.GetByIDAndVersion(context.Background(), templateID, 3)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByIDAndVersion_CorruptConfigDegrades(t *testing.T) {
	store, mock := newMockStore(t)
	template := sampleTemplate()

	mock.ExpectQuery(`FROM document_hub.master_template_definition`).
		WithArgs(template.TemplateID.String(), 1).
		WillReturnRows(templateRow(template, []byte(`{not json`)))

	got, err := store.GetByIDAndVersion(context.Background(), template.TemplateID, 1)
	require.NoError(t, err)
	assert.Nil(t, got.Variables)
	assert.Equal(t, template.Version, got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_NextVersion(t *testing.T) {
	store, mock := newMockStore(t)
	templateID := id.NewTemplateID()

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(template_version\), 0\) \+ 1`).
		WithArgs(templateID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))

	next, err := store.NextVersion(context.Background(), templateID)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Archive_ReportsAffectedRows(t *testing.T) {
	store, mock := newMockStore(t)
	templateID := id.NewTemplateID()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE document_hub.master_template_definition\s+SET archive_indicator = TRUE`).
		WithArgs(templateID.String(), 1, at, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE document_hub.master_template_definition\s+SET archive_indicator = TRUE`).
		WithArgs(templateID.String(), 1, at, "alice").
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := store.Archive(context.Background(), templateID, 1, "alice", at)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = store.Archive(context.Background(), templateID, 1, "alice", at)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_AppliesFilters(t *testing.T) {
	store, mock := newMockStore(t)
	template := sampleTemplate()
	lob := "BANKING"

	mock.ExpectQuery(`FROM document_hub.master_template_definition\s+WHERE archive_indicator = FALSE`).
		WithArgs(
			sql.NullString{String: "BANKING", Valid: true}, sql.NullString{},
			sql.NullBool{}, sql.NullString{},
			20, 0,
		).
		WillReturnRows(templateRow(template, nil))

	templates, err := store.List(context.Background(),
		models.ListFilter{LineOfBusiness: &lob}, models.Page{Limit: 20, Offset: 0})
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Nil(t, templates[0].Variables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TypeExists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("STATEMENT").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.TypeExists(context.Background(), "STATEMENT")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
