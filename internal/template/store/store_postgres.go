package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"templatehub/internal/template/models"
	id "templatehub/pkg/domain"
	"templatehub/pkg/platform/sentinel"
)

const templateColumns = `
	master_template_id, template_version, legacy_template_id, legacy_template_name,
	template_name, display_name, template_description, line_of_business,
	template_category, template_type, language_code, owning_dept,
	communication_type, workflow, notification_needed, regulatory_flag,
	message_center_doc_flag, active_flag, shared_document_flag, single_document_flag,
	sharing_scope, template_variables, data_extraction_config, document_matching_config,
	eligibility_criteria, access_control, required_fields, template_config,
	start_date, end_date, record_status, created_by, created_timestamp,
	updated_by, updated_timestamp, archive_indicator, archive_timestamp`

// PostgresStore persists master templates in PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed template store.
func NewPostgres(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Insert(ctx context.Context, template models.MasterTemplate) error {
	query := `
		INSERT INTO document_hub.master_template_definition (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31,
			$32, $33, $34, $35, $36, $37)
	`
	_, err := s.db.ExecContext(ctx, query,
		template.TemplateID.String(), template.Version,
		template.LegacyTemplateID, template.LegacyTemplateName,
		template.Name, template.DisplayName, template.Description, template.LineOfBusiness,
		template.Category, template.TemplateType, template.LanguageCode, template.OwningDept,
		template.CommunicationType, template.Workflow, template.NotificationNeeded, template.RegulatoryFlag,
		template.MessageCenterDocFlag, template.ActiveFlag, template.SharedDocumentFlag, template.SingleDocumentFlag,
		template.SharingScope, template.Variables, template.DataExtractionConfig, template.DocumentMatchingConfig,
		template.EligibilityCriteria, template.AccessControl, template.RequiredFields, template.Config,
		template.StartDate, nullInt64(template.EndDate), template.RecordStatus,
		template.CreatedBy, template.CreatedAt, template.UpdatedBy, template.UpdatedAt,
		template.Archived, nullTime(template.ArchivedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, template models.MasterTemplate) error {
	query := `
		UPDATE document_hub.master_template_definition SET
			legacy_template_id = $3, legacy_template_name = $4, template_name = $5,
			display_name = $6, template_description = $7, line_of_business = $8,
			template_category = $9, template_type = $10, language_code = $11,
			owning_dept = $12, communication_type = $13, workflow = $14,
			notification_needed = $15, regulatory_flag = $16, message_center_doc_flag = $17,
			active_flag = $18, shared_document_flag = $19, single_document_flag = $20,
			sharing_scope = $21, template_variables = $22, data_extraction_config = $23,
			document_matching_config = $24, eligibility_criteria = $25, access_control = $26,
			required_fields = $27, template_config = $28, start_date = $29, end_date = $30,
			record_status = $31, updated_by = $32, updated_timestamp = $33
		WHERE master_template_id = $1 AND template_version = $2 AND archive_indicator = FALSE
	`
	result, err := s.db.ExecContext(ctx, query,
		template.TemplateID.String(), template.Version,
		template.LegacyTemplateID, template.LegacyTemplateName, template.Name,
		template.DisplayName, template.Description, template.LineOfBusiness,
		template.Category, template.TemplateType, template.LanguageCode,
		template.OwningDept, template.CommunicationType, template.Workflow,
		template.NotificationNeeded, template.RegulatoryFlag, template.MessageCenterDocFlag,
		template.ActiveFlag, template.SharedDocumentFlag, template.SingleDocumentFlag,
		template.SharingScope, template.Variables, template.DataExtractionConfig,
		template.DocumentMatchingConfig, template.EligibilityCriteria, template.AccessControl,
		template.RequiredFields, template.Config, template.StartDate, nullInt64(template.EndDate),
		template.RecordStatus, template.UpdatedBy, template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, templateID id.TemplateID, version int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM document_hub.master_template_definition
			WHERE master_template_id = $1 AND template_version = $2
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, templateID.String(), version).Scan(&exists); err != nil {
		return false, fmt.Errorf("check template exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) GetByIDAndVersion(ctx context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_hub.master_template_definition
		WHERE master_template_id = $1 AND template_version = $2 AND archive_indicator = FALSE
	`
	template, err := s.scanTemplate(s.db.QueryRowContext(ctx, query, templateID.String(), version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MasterTemplate{}, sentinel.ErrNotFound
		}
		return models.MasterTemplate{}, fmt.Errorf("get template by id and version: %w", err)
	}
	return template, nil
}

func (s *PostgresStore) GetAllVersions(ctx context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_hub.master_template_definition
		WHERE master_template_id = $1 AND archive_indicator = FALSE
		ORDER BY template_version DESC
	`
	rows, err := s.db.QueryContext(ctx, query, templateID.String())
	if err != nil {
		return nil, fmt.Errorf("get all template versions: %w", err)
	}
	defer rows.Close()
	return s.collectTemplates(rows)
}

func (s *PostgresStore) FindByTypeAndVersion(ctx context.Context, templateType string, version int) (models.MasterTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_hub.master_template_definition
		WHERE template_type = $1 AND template_version = $2 AND archive_indicator = FALSE
	`
	template, err := s.scanTemplate(s.db.QueryRowContext(ctx, query, templateType, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MasterTemplate{}, sentinel.ErrNotFound
		}
		return models.MasterTemplate{}, fmt.Errorf("find template by type and version: %w", err)
	}
	return template, nil
}

func (s *PostgresStore) FindLatestActiveByType(ctx context.Context, templateType string, at time.Time) (models.MasterTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_hub.master_template_definition
		WHERE template_type = $1 AND archive_indicator = FALSE AND active_flag = TRUE
			AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY template_version DESC
		LIMIT 1
	`
	template, err := s.scanTemplate(s.db.QueryRowContext(ctx, query, templateType, at.UnixMilli()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MasterTemplate{}, sentinel.ErrNotFound
		}
		return models.MasterTemplate{}, fmt.Errorf("find latest active template by type: %w", err)
	}
	return template, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.MasterTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_hub.master_template_definition
		WHERE archive_indicator = FALSE
			AND ($1::text IS NULL OR line_of_business = $1)
			AND ($2::text IS NULL OR template_type = $2)
			AND ($3::boolean IS NULL OR active_flag = $3)
			AND ($4::text IS NULL OR communication_type = $4)
		ORDER BY created_timestamp DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := s.db.QueryContext(ctx, query,
		nullString(filter.LineOfBusiness), nullString(filter.TemplateType),
		nullBool(filter.ActiveFlag), nullString(filter.CommunicationType),
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return s.collectTemplates(rows)
}

func (s *PostgresStore) ListActiveByLineOfBusiness(ctx context.Context, lineOfBusiness string, at time.Time) ([]models.MasterTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM document_hub.master_template_definition
		WHERE line_of_business = $1 AND archive_indicator = FALSE AND active_flag = TRUE
			AND (start_date IS NULL OR start_date <= $2)
			AND (end_date IS NULL OR end_date >= $2)
		ORDER BY template_version DESC
	`
	rows, err := s.db.QueryContext(ctx, query, lineOfBusiness, at.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list active templates by line of business: %w", err)
	}
	defer rows.Close()
	return s.collectTemplates(rows)
}

func (s *PostgresStore) Count(ctx context.Context, filter models.ListFilter) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM document_hub.master_template_definition
		WHERE archive_indicator = FALSE
			AND ($1::text IS NULL OR line_of_business = $1)
			AND ($2::text IS NULL OR template_type = $2)
			AND ($3::boolean IS NULL OR active_flag = $3)
			AND ($4::text IS NULL OR communication_type = $4)
	`
	var count int64
	err := s.db.QueryRowContext(ctx, query,
		nullString(filter.LineOfBusiness), nullString(filter.TemplateType),
		nullBool(filter.ActiveFlag), nullString(filter.CommunicationType),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) NextVersion(ctx context.Context, templateID id.TemplateID) (int, error) {
	query := `
		SELECT COALESCE(MAX(template_version), 0) + 1
		FROM document_hub.master_template_definition
		WHERE master_template_id = $1
	`
	var next int
	if err := s.db.QueryRowContext(ctx, query, templateID.String()).Scan(&next); err != nil {
		return 0, fmt.Errorf("next template version: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) TypeExists(ctx context.Context, templateType string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM document_hub.master_template_definition
			WHERE template_type = $1 AND template_version = 1 AND archive_indicator = FALSE
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, templateType).Scan(&exists); err != nil {
		return false, fmt.Errorf("check template type exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Archive(ctx context.Context, templateID id.TemplateID, version int, actor string, at time.Time) (int64, error) {
	query := `
		UPDATE document_hub.master_template_definition
		SET archive_indicator = TRUE, archive_timestamp = $3, updated_by = $4, updated_timestamp = $3
		WHERE master_template_id = $1 AND template_version = $2 AND archive_indicator = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, templateID.String(), version, at, actor)
	if err != nil {
		return 0, fmt.Errorf("archive template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive template rows affected: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanTemplate(row rowScanner) (models.MasterTemplate, error) {
	var (
		template  models.MasterTemplate
		rawID     string
		jsonCols  [7][]byte
		endDate   sql.NullInt64
		archiveAt sql.NullTime
	)
	err := row.Scan(
		&rawID, &template.Version, &template.LegacyTemplateID, &template.LegacyTemplateName,
		&template.Name, &template.DisplayName, &template.Description, &template.LineOfBusiness,
		&template.Category, &template.TemplateType, &template.LanguageCode, &template.OwningDept,
		&template.CommunicationType, &template.Workflow, &template.NotificationNeeded, &template.RegulatoryFlag,
		&template.MessageCenterDocFlag, &template.ActiveFlag, &template.SharedDocumentFlag, &template.SingleDocumentFlag,
		&template.SharingScope, &jsonCols[0], &jsonCols[1], &jsonCols[2],
		&jsonCols[3], &jsonCols[4], &jsonCols[5], &jsonCols[6],
		&template.StartDate, &endDate, &template.RecordStatus,
		&template.CreatedBy, &template.CreatedAt, &template.UpdatedBy, &template.UpdatedAt,
		&template.Archived, &archiveAt,
	)
	if err != nil {
		return models.MasterTemplate{}, err
	}
	parsed, err := id.ParseTemplateID(rawID)
	if err != nil {
		return models.MasterTemplate{}, fmt.Errorf("parse stored template id: %w", err)
	}
	template.TemplateID = parsed
	template.Variables = s.decodeJSON("template_variables", jsonCols[0])
	template.DataExtractionConfig = s.decodeJSON("data_extraction_config", jsonCols[1])
	template.DocumentMatchingConfig = s.decodeJSON("document_matching_config", jsonCols[2])
	template.EligibilityCriteria = s.decodeJSON("eligibility_criteria", jsonCols[3])
	template.AccessControl = s.decodeJSON("access_control", jsonCols[4])
	template.RequiredFields = s.decodeJSON("required_fields", jsonCols[5])
	template.Config = s.decodeJSON("template_config", jsonCols[6])
	if endDate.Valid {
		template.EndDate = &endDate.Int64
	}
	if archiveAt.Valid {
		template.ArchivedAt = &archiveAt.Time
	}
	return template, nil
}

func (s *PostgresStore) collectTemplates(rows *sql.Rows) ([]models.MasterTemplate, error) {
	templates := make([]models.MasterTemplate, 0)
	for rows.Next() {
		template, err := s.scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template row: %w", err)
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template rows: %w", err)
	}
	return templates, nil
}

// decodeJSON degrades a corrupt configuration blob to "field absent" after
// logging it. Identity and version columns never go through this path.
func (s *PostgresStore) decodeJSON(column string, raw []byte) id.JSONMap {
	decoded, err := id.DecodeJSONMap(raw)
	if err != nil {
		s.logger.Warn("dropping unreadable template config column", "column", column, "error", err)
		return nil
	}
	return decoded
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullBool(value *bool) sql.NullBool {
	if value == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *value, Valid: true}
}
