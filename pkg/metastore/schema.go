package metastore

import (
	"context"
	"fmt"
)

const SchemaVersion = 1

// Migrate creates (or upgrades) the metadata schema in-place.
//
// The schema tracks:
// - plugin software and the commands it exposes
// - processing jobs, their parameters, and their input/output artifacts
// - artifacts with filepaths and provenance links
// - archive feature values keyed by merging scheme
// - reference databases and client API tokens
func Migrate(ctx context.Context, db *DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if db == nil {
		return fmt.Errorf("db is nil")
	}

	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "TEXT"
	if db.dialect == DialectPostgres {
		serial = "BIGSERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		);`,
		`INSERT INTO schema_meta (id, schema_version)
			VALUES (1, 0)
			ON CONFLICT(id) DO NOTHING;`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS software (
			software_id %s,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			description TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE(name, version)
		);`, serial),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS software_command (
			command_id %s,
			software_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			-- merging_scheme marks commands whose outputs feed the archive.
			merging_scheme BOOLEAN NOT NULL DEFAULT FALSE,
			-- merging_scheme_parameter names the job parameter folded into the scheme.
			merging_scheme_parameter TEXT,
			UNIQUE(software_id, name),
			FOREIGN KEY(software_id) REFERENCES software(software_id)
		);`, serial),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS logging_entry (
			logging_id %s,
			logged_at %s NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL
		);`, serial, timestamp),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS processing_job (
			job_id TEXT PRIMARY KEY,
			command_id BIGINT NOT NULL,
			status TEXT NOT NULL,
			step TEXT,
			heartbeat %s,
			parameters TEXT NOT NULL,
			log_id BIGINT,
			created_at %s NOT NULL,
			FOREIGN KEY(command_id) REFERENCES software_command(command_id),
			FOREIGN KEY(log_id) REFERENCES logging_entry(logging_id)
		);`, timestamp, timestamp),
		`CREATE INDEX IF NOT EXISTS idx_processing_job_status ON processing_job(status);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS artifact (
			artifact_id %s,
			artifact_type TEXT NOT NULL,
			command_id BIGINT,
			command_parameters TEXT,
			can_be_submitted_to_ebi BOOLEAN NOT NULL DEFAULT FALSE,
			can_be_submitted_to_vamps BOOLEAN NOT NULL DEFAULT FALSE,
			created_at %s NOT NULL,
			FOREIGN KEY(command_id) REFERENCES software_command(command_id)
		);`, serial, timestamp),

		`CREATE TABLE IF NOT EXISTS artifact_filepath (
			artifact_id BIGINT NOT NULL,
			filepath TEXT NOT NULL,
			filepath_type TEXT NOT NULL,
			PRIMARY KEY(artifact_id, filepath),
			FOREIGN KEY(artifact_id) REFERENCES artifact(artifact_id)
		);`,

		`CREATE TABLE IF NOT EXISTS parent_artifact (
			artifact_id BIGINT NOT NULL,
			parent_id BIGINT NOT NULL,
			PRIMARY KEY(artifact_id, parent_id),
			FOREIGN KEY(artifact_id) REFERENCES artifact(artifact_id),
			FOREIGN KEY(parent_id) REFERENCES artifact(artifact_id)
		);`,

		`CREATE TABLE IF NOT EXISTS job_input_artifact (
			job_id TEXT NOT NULL,
			artifact_id BIGINT NOT NULL,
			PRIMARY KEY(job_id, artifact_id),
			FOREIGN KEY(job_id) REFERENCES processing_job(job_id),
			FOREIGN KEY(artifact_id) REFERENCES artifact(artifact_id)
		);`,

		`CREATE TABLE IF NOT EXISTS job_output_artifact (
			job_id TEXT NOT NULL,
			artifact_id BIGINT NOT NULL,
			PRIMARY KEY(job_id, artifact_id),
			FOREIGN KEY(job_id) REFERENCES processing_job(job_id),
			FOREIGN KEY(artifact_id) REFERENCES artifact(artifact_id)
		);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS reference (
			reference_id %s,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			sequence_filepath TEXT NOT NULL,
			taxonomy_filepath TEXT,
			tree_filepath TEXT,
			UNIQUE(name, version)
		);`, serial),

		`CREATE TABLE IF NOT EXISTS archive_feature_value (
			merging_scheme TEXT NOT NULL,
			feature TEXT NOT NULL,
			feature_value TEXT NOT NULL,
			PRIMARY KEY(merging_scheme, feature)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_archive_feature_value_scheme ON archive_feature_value(merging_scheme);`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS client_token (
			token TEXT PRIMARY KEY,
			client_id TEXT NOT NULL,
			expires_at %s NOT NULL
		);`, timestamp),
		`CREATE INDEX IF NOT EXISTS idx_client_token_expires ON client_token(expires_at);`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	if current != SchemaVersion {
		if _, err := tx.ExecContext(ctx, rebind(db.dialect, `UPDATE schema_meta SET schema_version=? WHERE id=1`), SchemaVersion); err != nil {
			return fmt.Errorf("update schema_version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// CurrentSchemaVersion reads the version row written by Migrate.
func CurrentSchemaVersion(ctx context.Context, db *DB) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var version int
	if err := db.queryRow(ctx, `SELECT schema_version FROM schema_meta WHERE id=1`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return version, nil
}

// DropSchema removes every table Migrate creates. Intended for test
// environments and the env CLI; refuses nothing, so callers guard it.
func DropSchema(ctx context.Context, db *DB) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tables := []string{
		"archive_feature_value",
		"client_token",
		"job_output_artifact",
		"job_input_artifact",
		"parent_artifact",
		"artifact_filepath",
		"artifact",
		"processing_job",
		"logging_entry",
		"software_command",
		"software",
		"reference",
		"schema_meta",
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop tx: %w", err)
	}
	return nil
}
