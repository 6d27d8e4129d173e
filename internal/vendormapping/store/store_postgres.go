package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
	"templatehub/pkg/platform/sentinel"
)

const mappingColumns = `
	template_vendor_id, master_template_id, template_version, vendor, vendor_type,
	vendor_template_key, vendor_template_name, reference_key_type, consumer_id,
	start_date, end_date, vendor_mapping_version, primary_flag, active_flag,
	template_status, vendor_status, priority_order, schema_info, template_fields,
	vendor_config, api_config, rate_limit_per_minute, rate_limit_per_day,
	timeout_ms, max_retry_attempts, retry_backoff_ms, cost_per_unit, cost_unit,
	supported_regions, supported_formats, health_check_endpoint, last_health_status,
	last_health_check, record_status, created_by, created_timestamp,
	updated_by, updated_timestamp, archive_indicator, archive_timestamp`

// PostgresStore persists vendor mappings in PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed vendor mapping store.
func NewPostgres(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Insert(ctx context.Context, mapping models.VendorMapping) error {
	query := `
		INSERT INTO document_hub.template_vendor_mapping (` + mappingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32, $33, $34, $35, $36, $37, $38, $39, $40)
	`
	_, err := s.db.ExecContext(ctx, query,
		mapping.VendorID.String(), mapping.TemplateID.String(), mapping.TemplateVersion,
		mapping.Vendor, mapping.VendorType,
		mapping.VendorTemplateKey, mapping.VendorTemplateName, mapping.ReferenceKeyType, mapping.ConsumerID,
		mapping.StartDate, nullInt64(mapping.EndDate), mapping.MappingVersion,
		mapping.PrimaryFlag, mapping.ActiveFlag,
		mapping.TemplateStatus, mapping.VendorStatus, mapping.PriorityOrder,
		mapping.SchemaInfo, mapping.TemplateFields, mapping.VendorConfig, mapping.APIConfig,
		mapping.RateLimitPerMinute, mapping.RateLimitPerDay,
		mapping.TimeoutMs, mapping.MaxRetryAttempts, mapping.RetryBackoffMs,
		mapping.CostPerUnit, mapping.CostUnit,
		pq.StringArray(mapping.SupportedRegions), pq.StringArray(mapping.SupportedFormats),
		mapping.HealthCheckEndpoint, mapping.LastHealthStatus, nullTime(mapping.LastHealthCheck),
		mapping.RecordStatus, mapping.CreatedBy, mapping.CreatedAt,
		mapping.UpdatedBy, mapping.UpdatedAt, mapping.Archived, nullTime(mapping.ArchivedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert vendor mapping: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, mapping models.VendorMapping) error {
	query := `
		UPDATE document_hub.template_vendor_mapping SET
			vendor_template_key = $2, vendor_template_name = $3, reference_key_type = $4,
			consumer_id = $5, start_date = $6, end_date = $7, vendor_mapping_version = $8,
			primary_flag = $9, active_flag = $10, template_status = $11, vendor_status = $12,
			priority_order = $13, schema_info = $14, template_fields = $15, vendor_config = $16,
			api_config = $17, rate_limit_per_minute = $18, rate_limit_per_day = $19,
			timeout_ms = $20, max_retry_attempts = $21, retry_backoff_ms = $22,
			cost_per_unit = $23, cost_unit = $24, supported_regions = $25,
			supported_formats = $26, health_check_endpoint = $27, record_status = $28,
			updated_by = $29, updated_timestamp = $30
		WHERE template_vendor_id = $1 AND archive_indicator = FALSE
	`
	result, err := s.db.ExecContext(ctx, query,
		mapping.VendorID.String(),
		mapping.VendorTemplateKey, mapping.VendorTemplateName, mapping.ReferenceKeyType,
		mapping.ConsumerID, mapping.StartDate, nullInt64(mapping.EndDate), mapping.MappingVersion,
		mapping.PrimaryFlag, mapping.ActiveFlag, mapping.TemplateStatus, mapping.VendorStatus,
		mapping.PriorityOrder, mapping.SchemaInfo, mapping.TemplateFields, mapping.VendorConfig,
		mapping.APIConfig, mapping.RateLimitPerMinute, mapping.RateLimitPerDay,
		mapping.TimeoutMs, mapping.MaxRetryAttempts, mapping.RetryBackoffMs,
		mapping.CostPerUnit, mapping.CostUnit, pq.StringArray(mapping.SupportedRegions),
		pq.StringArray(mapping.SupportedFormats), mapping.HealthCheckEndpoint, mapping.RecordStatus,
		mapping.UpdatedBy, mapping.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update vendor mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vendor mapping rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, vendorID id.VendorID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM document_hub.template_vendor_mapping WHERE template_vendor_id = $1
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, vendorID.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check vendor mapping exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, vendorID id.VendorID) (models.VendorMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM document_hub.template_vendor_mapping
		WHERE template_vendor_id = $1 AND archive_indicator = FALSE
	`
	mapping, err := s.scanMapping(s.db.QueryRowContext(ctx, query, vendorID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VendorMapping{}, sentinel.ErrNotFound
		}
		return models.VendorMapping{}, fmt.Errorf("get vendor mapping by id: %w", err)
	}
	return mapping, nil
}

func (s *PostgresStore) ListByTemplate(ctx context.Context, templateID id.TemplateID) ([]models.VendorMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM document_hub.template_vendor_mapping
		WHERE master_template_id = $1 AND archive_indicator = FALSE
		ORDER BY template_version DESC, priority_order ASC
	`
	rows, err := s.db.QueryContext(ctx, query, templateID.String())
	if err != nil {
		return nil, fmt.Errorf("list vendor mappings by template: %w", err)
	}
	defer rows.Close()
	return s.collectMappings(rows)
}

func (s *PostgresStore) ListByTemplateVersion(ctx context.Context, templateID id.TemplateID, version int) ([]models.VendorMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM document_hub.template_vendor_mapping
		WHERE master_template_id = $1 AND template_version = $2 AND archive_indicator = FALSE
		ORDER BY priority_order ASC
	`
	rows, err := s.db.QueryContext(ctx, query, templateID.String(), version)
	if err != nil {
		return nil, fmt.Errorf("list vendor mappings by template version: %w", err)
	}
	defer rows.Close()
	return s.collectMappings(rows)
}

func (s *PostgresStore) FindPrimary(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM document_hub.template_vendor_mapping
		WHERE master_template_id = $1 AND template_version = $2 AND vendor_type = $3
			AND primary_flag = TRUE AND active_flag = TRUE AND archive_indicator = FALSE
		ORDER BY template_vendor_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, templateID.String(), version, vendorType)
	if err != nil {
		return nil, fmt.Errorf("find primary vendor mapping: %w", err)
	}
	defer rows.Close()
	return s.collectMappings(rows)
}

func (s *PostgresStore) FindActiveForRouting(ctx context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM document_hub.template_vendor_mapping
		WHERE master_template_id = $1 AND template_version = $2 AND vendor_type = $3
			AND active_flag = TRUE AND archive_indicator = FALSE
			AND vendor_status IN ('', 'ACTIVE', 'DEGRADED')
		ORDER BY priority_order ASC
	`
	rows, err := s.db.QueryContext(ctx, query, templateID.String(), version, vendorType)
	if err != nil {
		return nil, fmt.Errorf("find vendor mappings for routing: %w", err)
	}
	defer rows.Close()
	return s.collectMappings(rows)
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page models.Page) ([]models.VendorMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM document_hub.template_vendor_mapping
		WHERE archive_indicator = FALSE
			AND ($1::uuid IS NULL OR master_template_id = $1)
			AND ($2::text IS NULL OR vendor_type = $2)
			AND ($3::text IS NULL OR vendor = $3)
			AND ($4::boolean IS NULL OR active_flag = $4)
		ORDER BY created_timestamp DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := s.db.QueryContext(ctx, query,
		nullTemplateID(filter.TemplateID), nullString(filter.VendorType),
		nullString(filter.Vendor), nullBool(filter.ActiveFlag),
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list vendor mappings: %w", err)
	}
	defer rows.Close()
	return s.collectMappings(rows)
}

func (s *PostgresStore) Count(ctx context.Context, filter models.ListFilter) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM document_hub.template_vendor_mapping
		WHERE archive_indicator = FALSE
			AND ($1::uuid IS NULL OR master_template_id = $1)
			AND ($2::text IS NULL OR vendor_type = $2)
			AND ($3::text IS NULL OR vendor = $3)
			AND ($4::boolean IS NULL OR active_flag = $4)
	`
	var count int64
	err := s.db.QueryRowContext(ctx, query,
		nullTemplateID(filter.TemplateID), nullString(filter.VendorType),
		nullString(filter.Vendor), nullBool(filter.ActiveFlag),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count vendor mappings: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ExistsDuplicate(ctx context.Context, templateID id.TemplateID, version int, vendor, vendorType string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM document_hub.template_vendor_mapping
			WHERE master_template_id = $1 AND template_version = $2
				AND vendor = $3 AND vendor_type = $4 AND archive_indicator = FALSE
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, templateID.String(), version, vendor, vendorType).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate vendor mapping: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateHealth(ctx context.Context, vendorID id.VendorID, vendorStatus, healthStatus string, at time.Time) (int64, error) {
	query := `
		UPDATE document_hub.template_vendor_mapping
		SET vendor_status = $2, last_health_status = $3, last_health_check = $4, updated_timestamp = $4
		WHERE template_vendor_id = $1 AND archive_indicator = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, vendorID.String(), vendorStatus, healthStatus, at)
	if err != nil {
		return 0, fmt.Errorf("update vendor health: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update vendor health rows affected: %w", err)
	}
	return affected, nil
}

func (s *PostgresStore) Archive(ctx context.Context, vendorID id.VendorID, actor string, at time.Time) (int64, error) {
	query := `
		UPDATE document_hub.template_vendor_mapping
		SET archive_indicator = TRUE, archive_timestamp = $2, updated_by = $3, updated_timestamp = $2
		WHERE template_vendor_id = $1 AND archive_indicator = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, vendorID.String(), at, actor)
	if err != nil {
		return 0, fmt.Errorf("archive vendor mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive vendor mapping rows affected: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanMapping(row rowScanner) (models.VendorMapping, error) {
	var (
		mapping   models.VendorMapping
		rawVendor string
		rawTplID  string
		jsonCols  [4][]byte
		endDate   sql.NullInt64
		healthAt  sql.NullTime
		archiveAt sql.NullTime
		regions   pq.StringArray
		formats   pq.StringArray
	)
	err := row.Scan(
		&rawVendor, &rawTplID, &mapping.TemplateVersion, &mapping.Vendor, &mapping.VendorType,
		&mapping.VendorTemplateKey, &mapping.VendorTemplateName, &mapping.ReferenceKeyType, &mapping.ConsumerID,
		&mapping.StartDate, &endDate, &mapping.MappingVersion, &mapping.PrimaryFlag, &mapping.ActiveFlag,
		&mapping.TemplateStatus, &mapping.VendorStatus, &mapping.PriorityOrder,
		&jsonCols[0], &jsonCols[1], &jsonCols[2], &jsonCols[3],
		&mapping.RateLimitPerMinute, &mapping.RateLimitPerDay,
		&mapping.TimeoutMs, &mapping.MaxRetryAttempts, &mapping.RetryBackoffMs,
		&mapping.CostPerUnit, &mapping.CostUnit, &regions, &formats,
		&mapping.HealthCheckEndpoint, &mapping.LastHealthStatus, &healthAt,
		&mapping.RecordStatus, &mapping.CreatedBy, &mapping.CreatedAt,
		&mapping.UpdatedBy, &mapping.UpdatedAt, &mapping.Archived, &archiveAt,
	)
	if err != nil {
		return models.VendorMapping{}, err
	}
	vendorID, err := id.ParseVendorID(rawVendor)
	if err != nil {
		return models.VendorMapping{}, fmt.Errorf("parse stored vendor id: %w", err)
	}
	templateID, err := id.ParseTemplateID(rawTplID)
	if err != nil {
		return models.VendorMapping{}, fmt.Errorf("parse stored template id: %w", err)
	}
	mapping.VendorID = vendorID
	mapping.TemplateID = templateID
	mapping.SchemaInfo = s.decodeJSON("schema_info", jsonCols[0])
	mapping.TemplateFields = s.decodeJSON("template_fields", jsonCols[1])
	mapping.VendorConfig = s.decodeJSON("vendor_config", jsonCols[2])
	mapping.APIConfig = s.decodeJSON("api_config", jsonCols[3])
	mapping.SupportedRegions = []string(regions)
	mapping.SupportedFormats = []string(formats)
	if endDate.Valid {
		mapping.EndDate = &endDate.Int64
	}
	if healthAt.Valid {
		mapping.LastHealthCheck = &healthAt.Time
	}
	if archiveAt.Valid {
		mapping.ArchivedAt = &archiveAt.Time
	}
	return mapping, nil
}

func (s *PostgresStore) collectMappings(rows *sql.Rows) ([]models.VendorMapping, error) {
	mappings := make([]models.VendorMapping, 0)
	for rows.Next() {
		mapping, err := s.scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor mapping row: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor mapping rows: %w", err)
	}
	return mappings, nil
}

func (s *PostgresStore) decodeJSON(column string, raw []byte) id.JSONMap {
	decoded, err := id.DecodeJSONMap(raw)
	if err != nil {
		s.logger.Warn("dropping unreadable vendor config column", "column", column, "error", err)
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

func nullTemplateID(value *id.TemplateID) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.String(), Valid: true}
}
