package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Artifact is one row of artifact plus its filepaths.
type Artifact struct {
	ArtifactID            int64
	ArtifactType          string
	CommandID             *int64
	CommandParameters     map[string]any
	CanBeSubmittedToEBI   bool
	CanBeSubmittedToVAMPS bool
	CreatedAt             time.Time
	Filepaths             []FilepathEntry
}

// ArtifactSpec describes an artifact to create. ParentIDs, CommandID, and
// CommandParameters are filled in by CompleteJob when the artifact comes out
// of a processing job.
type ArtifactSpec struct {
	ArtifactType          string
	Filepaths             []FilepathEntry
	CanBeSubmittedToEBI   bool
	CanBeSubmittedToVAMPS bool
	ParentIDs             []int64
	CommandID             *int64
	CommandParameters     map[string]any
}

// CreateArtifact stores an artifact with its filepaths and parent links.
func CreateArtifact(ctx context.Context, db *DB, spec ArtifactSpec) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var id int64
	err := WithTx(ctx, db, func(tx *Tx) error {
		var err error
		id, err = createArtifact(ctx, tx, spec)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func createArtifact(ctx context.Context, tx *Tx, spec ArtifactSpec) (int64, error) {
	if spec.ArtifactType == "" {
		return 0, errors.New("artifact type is required")
	}
	if len(spec.Filepaths) == 0 {
		return 0, errors.New("artifact needs at least one filepath")
	}

	var params any
	if spec.CommandParameters != nil {
		encoded, err := encodeParameters(spec.CommandParameters)
		if err != nil {
			return 0, err
		}
		params = encoded
	}

	now := time.Now().UTC()

	var artifactID int64
	err := tx.queryRow(ctx,
		`INSERT INTO artifact
		 (artifact_type, command_id, command_parameters,
		  can_be_submitted_to_ebi, can_be_submitted_to_vamps, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING artifact_id`,
		spec.ArtifactType, spec.CommandID, params,
		spec.CanBeSubmittedToEBI, spec.CanBeSubmittedToVAMPS, now).Scan(&artifactID)
	if err != nil {
		return 0, fmt.Errorf("insert artifact: %w", err)
	}

	for _, fp := range spec.Filepaths {
		if _, err := tx.exec(ctx,
			`INSERT INTO artifact_filepath (artifact_id, filepath, filepath_type) VALUES (?, ?, ?)`,
			artifactID, fp.Path, fp.Type); err != nil {
			return 0, fmt.Errorf("insert artifact filepath %s: %w", fp.Path, err)
		}
	}

	for _, parentID := range spec.ParentIDs {
		if _, err := tx.exec(ctx,
			`INSERT INTO parent_artifact (artifact_id, parent_id) VALUES (?, ?)`,
			artifactID, parentID); err != nil {
			return 0, fmt.Errorf("link parent artifact %d: %w", parentID, err)
		}
	}

	return artifactID, nil
}

// GetArtifact retrieves an artifact with its filepaths. Returns ErrNotFound
// when absent.
func GetArtifact(ctx context.Context, db *DB, artifactID int64) (*Artifact, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return getArtifact(ctx, db, artifactID)
}

func getArtifact(ctx context.Context, q querier, artifactID int64) (*Artifact, error) {
	var (
		a          Artifact
		commandID  sql.NullInt64
		paramsRaw  sql.NullString
		createdRaw any
	)

	err := q.queryRow(ctx,
		`SELECT artifact_id, artifact_type, command_id, command_parameters,
		        can_be_submitted_to_ebi, can_be_submitted_to_vamps, created_at
		 FROM artifact WHERE artifact_id = ?`,
		artifactID).Scan(
		&a.ArtifactID, &a.ArtifactType, &commandID, &paramsRaw,
		&a.CanBeSubmittedToEBI, &a.CanBeSubmittedToVAMPS, &createdRaw)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("artifact %d: %w", artifactID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}

	if commandID.Valid {
		a.CommandID = &commandID.Int64
	}
	if paramsRaw.Valid {
		if err := json.Unmarshal([]byte(paramsRaw.String), &a.CommandParameters); err != nil {
			return nil, fmt.Errorf("decode command parameters: %w", err)
		}
	}

	created, err := parseDBTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	a.CreatedAt = created

	filepaths, err := listArtifactFilepaths(ctx, q, artifactID)
	if err != nil {
		return nil, err
	}
	a.Filepaths = filepaths

	return &a, nil
}

// ListJobOutputArtifacts returns the artifacts a job produced, in creation order.
func ListJobOutputArtifacts(ctx context.Context, db *DB, jobID string) ([]Artifact, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := db.query(ctx,
		`SELECT artifact_id FROM job_output_artifact WHERE job_id = ? ORDER BY artifact_id`,
		jobID)
	if err != nil {
		return nil, fmt.Errorf("list output artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan output artifact id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate output artifacts: %w", err)
	}

	artifacts := make([]Artifact, 0, len(ids))
	for _, id := range ids {
		a, err := getArtifact(ctx, db, id)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *a)
	}
	return artifacts, nil
}

// ListArtifactParentIDs returns the ids of an artifact's parents.
func ListArtifactParentIDs(ctx context.Context, db *DB, artifactID int64) ([]int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := db.query(ctx,
		`SELECT parent_id FROM parent_artifact WHERE artifact_id = ? ORDER BY parent_id`,
		artifactID)
	if err != nil {
		return nil, fmt.Errorf("list parent artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan parent artifact id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parent artifacts: %w", err)
	}
	return ids, nil
}

func listArtifactFilepaths(ctx context.Context, q querier, artifactID int64) ([]FilepathEntry, error) {
	rows, err := q.query(ctx,
		`SELECT filepath, filepath_type FROM artifact_filepath WHERE artifact_id = ? ORDER BY filepath`,
		artifactID)
	if err != nil {
		return nil, fmt.Errorf("list artifact filepaths: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var filepaths []FilepathEntry
	for rows.Next() {
		var fp FilepathEntry
		if err := rows.Scan(&fp.Path, &fp.Type); err != nil {
			return nil, fmt.Errorf("scan artifact filepath: %w", err)
		}
		filepaths = append(filepaths, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifact filepaths: %w", err)
	}
	return filepaths, nil
}
