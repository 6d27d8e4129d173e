//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

// schema mirrors the production document_hub tables. The partial unique
// indexes scope uniqueness to non-archived rows, so an archived identity can
// be recreated.
const schema = `
CREATE SCHEMA IF NOT EXISTS document_hub;

CREATE TABLE IF NOT EXISTS document_hub.master_template_definition (
	master_template_id       uuid        NOT NULL,
	template_version         integer     NOT NULL,
	legacy_template_id       text        NOT NULL DEFAULT '',
	legacy_template_name     text        NOT NULL DEFAULT '',
	template_name            text        NOT NULL,
	display_name             text        NOT NULL DEFAULT '',
	template_description     text        NOT NULL DEFAULT '',
	line_of_business         text        NOT NULL DEFAULT '',
	template_category        text        NOT NULL DEFAULT '',
	template_type            text        NOT NULL,
	language_code            text        NOT NULL DEFAULT '',
	owning_dept              text        NOT NULL DEFAULT '',
	communication_type       text        NOT NULL DEFAULT '',
	workflow                 text        NOT NULL DEFAULT '',
	notification_needed      boolean     NOT NULL DEFAULT false,
	regulatory_flag          boolean     NOT NULL DEFAULT false,
	message_center_doc_flag  boolean     NOT NULL DEFAULT false,
	active_flag              boolean     NOT NULL DEFAULT false,
	shared_document_flag     boolean     NOT NULL DEFAULT false,
	single_document_flag     boolean     NOT NULL DEFAULT false,
	sharing_scope            text        NOT NULL DEFAULT '',
	template_variables       jsonb,
	data_extraction_config   jsonb,
	document_matching_config jsonb,
	eligibility_criteria     jsonb,
	access_control           jsonb,
	required_fields          jsonb,
	template_config          jsonb,
	start_date               bigint      NOT NULL DEFAULT 0,
	end_date                 bigint,
	record_status            text        NOT NULL DEFAULT '',
	created_by               text        NOT NULL DEFAULT '',
	created_timestamp        timestamptz NOT NULL,
	updated_by               text        NOT NULL DEFAULT '',
	updated_timestamp        timestamptz NOT NULL,
	archive_indicator        boolean     NOT NULL DEFAULT false,
	archive_timestamp        timestamptz,
	PRIMARY KEY (master_template_id, template_version)
);

CREATE UNIQUE INDEX IF NOT EXISTS master_template_type_version_live
	ON document_hub.master_template_definition (template_type, template_version)
	WHERE archive_indicator = false;

CREATE TABLE IF NOT EXISTS document_hub.template_vendor_mapping (
	template_vendor_id    uuid        NOT NULL,
	master_template_id    uuid        NOT NULL,
	template_version      integer     NOT NULL,
	vendor                text        NOT NULL,
	vendor_type           text        NOT NULL,
	vendor_template_key   text        NOT NULL DEFAULT '',
	vendor_template_name  text        NOT NULL DEFAULT '',
	reference_key_type    text        NOT NULL DEFAULT '',
	consumer_id           text        NOT NULL DEFAULT '',
	start_date            bigint      NOT NULL DEFAULT 0,
	end_date              bigint,
	vendor_mapping_version integer    NOT NULL,
	primary_flag          boolean     NOT NULL DEFAULT false,
	active_flag           boolean     NOT NULL DEFAULT false,
	template_status       text        NOT NULL DEFAULT '',
	vendor_status         text        NOT NULL DEFAULT '',
	priority_order        integer     NOT NULL DEFAULT 1,
	schema_info           jsonb,
	template_fields       jsonb,
	vendor_config         jsonb,
	api_config            jsonb,
	rate_limit_per_minute integer     NOT NULL DEFAULT 0,
	rate_limit_per_day    integer     NOT NULL DEFAULT 0,
	timeout_ms            integer     NOT NULL DEFAULT 0,
	max_retry_attempts    integer     NOT NULL DEFAULT 0,
	retry_backoff_ms      integer     NOT NULL DEFAULT 0,
	cost_per_unit         numeric     NOT NULL DEFAULT 0,
	cost_unit             text        NOT NULL DEFAULT '',
	supported_regions     text[],
	supported_formats     text[],
	health_check_endpoint text        NOT NULL DEFAULT '',
	last_health_status    text        NOT NULL DEFAULT '',
	last_health_check     timestamptz,
	record_status         text        NOT NULL DEFAULT '',
	created_by            text        NOT NULL DEFAULT '',
	created_timestamp     timestamptz NOT NULL,
	updated_by            text        NOT NULL DEFAULT '',
	updated_timestamp     timestamptz NOT NULL,
	archive_indicator     boolean     NOT NULL DEFAULT false,
	archive_timestamp     timestamptz,
	PRIMARY KEY (template_vendor_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS template_vendor_identity_live
	ON document_hub.template_vendor_mapping (master_template_id, template_version, vendor, vendor_type)
	WHERE archive_indicator = false;
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// document_hub schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new PostgreSQL container and creates the
// document_hub tables.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("templatehub"),
		tcpostgres.WithUsername("templatehub"),
		tcpostgres.WithPassword("templatehub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return pc
}

// TruncateAll removes every row from the document_hub tables. Use between
// tests to ensure isolation.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE document_hub.master_template_definition,
		         document_hub.template_vendor_mapping`)
	return err
}
