package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Completion carries a runner's final report for a job.
type Completion struct {
	Success   bool
	Error     string
	Artifacts []ArtifactSpec
}

// CreateJob registers a new processing job in queued status and links its
// input artifacts.
func CreateJob(ctx context.Context, db *DB, commandID int64, params map[string]any, inputArtifactIDs ...int64) (*Job, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	encoded, err := encodeParameters(params)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	now := time.Now().UTC()

	err = WithTx(ctx, db, func(tx *Tx) error {
		if _, err := tx.exec(ctx,
			`INSERT INTO processing_job (job_id, command_id, status, parameters, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			jobID, commandID, string(JobQueued), encoded, now); err != nil {
			return fmt.Errorf("insert processing_job: %w", err)
		}

		for _, artifactID := range inputArtifactIDs {
			if _, err := tx.exec(ctx,
				`INSERT INTO job_input_artifact (job_id, artifact_id) VALUES (?, ?)`,
				jobID, artifactID); err != nil {
				return fmt.Errorf("link input artifact %d: %w", artifactID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Job{
		JobID:      jobID,
		CommandID:  commandID,
		Status:     JobQueued,
		Parameters: params,
		CreatedAt:  now,
	}, nil
}

// GetJob retrieves a job by id. Returns ErrNotFound when no such job exists.
func GetJob(ctx context.Context, db *DB, jobID string) (*Job, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return getJob(ctx, db, jobID)
}

// JobExists reports whether a job with the given id is registered.
func JobExists(ctx context.Context, db *DB, jobID string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var one int
	err := db.queryRow(ctx, `SELECT 1 FROM processing_job WHERE job_id = ?`, jobID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check job %s: %w", jobID, err)
	}
	return true, nil
}

// Heartbeat records liveness for a job. A queued job is promoted to running
// with its first stamp; a running job gets a fresh stamp; terminal jobs
// reject the beat with a StateError.
func Heartbeat(ctx context.Context, db *DB, jobID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC()
	return WithTx(ctx, db, func(tx *Tx) error {
		res, err := tx.exec(ctx,
			`UPDATE processing_job SET status = ?, heartbeat = ? WHERE job_id = ? AND status = ?`,
			string(JobRunning), now, jobID, string(JobQueued))
		if err != nil {
			return fmt.Errorf("promote queued job: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n > 0 {
			return nil
		}

		res, err = tx.exec(ctx,
			`UPDATE processing_job SET heartbeat = ? WHERE job_id = ? AND status = ?`,
			now, jobID, string(JobRunning))
		if err != nil {
			return fmt.Errorf("update heartbeat: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n > 0 {
			return nil
		}

		job, err := getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		return &StateError{JobID: jobID, Status: job.Status}
	})
}

// SetStep records the runner's current step. Only running jobs accept it.
func SetStep(ctx context.Context, db *DB, jobID, step string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return WithTx(ctx, db, func(tx *Tx) error {
		res, err := tx.exec(ctx,
			`UPDATE processing_job SET step = ? WHERE job_id = ? AND status = ?`,
			step, jobID, string(JobRunning))
		if err != nil {
			return fmt.Errorf("update step: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		} else if n > 0 {
			return nil
		}

		job, err := getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		return &StateError{JobID: jobID, Status: job.Status}
	})
}

// CompleteJob applies a runner's final report. On success it stores one
// artifact per spec, each linked to the job's input artifacts and stamped
// with the job's parameters, then marks the job successful. On failure it
// stores a log entry, attaches it, and marks the job errored. The whole
// report lands in one transaction or not at all.
func CompleteJob(ctx context.Context, db *DB, jobID string, result Completion) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return WithTx(ctx, db, func(tx *Tx) error {
		job, err := getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != JobRunning {
			return &StateError{JobID: jobID, Status: job.Status}
		}

		if !result.Success {
			entry, err := createLogEntry(ctx, tx, SeverityRuntime, result.Error)
			if err != nil {
				return err
			}
			if _, err := tx.exec(ctx,
				`UPDATE processing_job SET log_id = ? WHERE job_id = ?`,
				entry.LoggingID, jobID); err != nil {
				return fmt.Errorf("attach log entry: %w", err)
			}
			return setJobStatus(ctx, tx, jobID, JobRunning, JobError)
		}

		inputs, err := listJobInputArtifactIDs(ctx, tx, jobID)
		if err != nil {
			return err
		}

		for _, spec := range result.Artifacts {
			spec.ParentIDs = inputs
			spec.CommandID = &job.CommandID
			spec.CommandParameters = job.Parameters

			artifactID, err := createArtifact(ctx, tx, spec)
			if err != nil {
				return err
			}
			if _, err := tx.exec(ctx,
				`INSERT INTO job_output_artifact (job_id, artifact_id) VALUES (?, ?)`,
				jobID, artifactID); err != nil {
				return fmt.Errorf("link output artifact: %w", err)
			}
		}

		return setJobStatus(ctx, tx, jobID, JobRunning, JobSuccess)
	})
}

// ListJobInputArtifactIDs returns the ids of the artifacts a job consumes.
func ListJobInputArtifactIDs(ctx context.Context, db *DB, jobID string) ([]int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return listJobInputArtifactIDs(ctx, db, jobID)
}

func getJob(ctx context.Context, q querier, jobID string) (*Job, error) {
	var (
		job          Job
		step         sql.NullString
		heartbeatRaw any
		paramsRaw    string
		logID        sql.NullInt64
		createdRaw   any
	)

	err := q.queryRow(ctx,
		`SELECT job_id, command_id, status, step, heartbeat, parameters, log_id, created_at
		 FROM processing_job WHERE job_id = ?`,
		jobID).Scan(
		&job.JobID, &job.CommandID, &job.Status, &step, &heartbeatRaw,
		&paramsRaw, &logID, &createdRaw)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get processing_job: %w", err)
	}

	if step.Valid {
		job.Step = &step.String
	}
	if logID.Valid {
		job.LogID = &logID.Int64
	}

	heartbeat, err := parseOptionalDBTime(heartbeatRaw)
	if err != nil {
		return nil, fmt.Errorf("parse heartbeat: %w", err)
	}
	job.Heartbeat = heartbeat

	created, err := parseDBTime(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	job.CreatedAt = created

	if err := json.Unmarshal([]byte(paramsRaw), &job.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters: %w", err)
	}

	return &job, nil
}

// setJobStatus moves a job between statuses with the transition table as the
// guard. The WHERE clause re-checks the source status so a concurrent
// transition surfaces as a StateError instead of a silent overwrite.
func setJobStatus(ctx context.Context, tx *Tx, jobID string, from, to JobStatus) error {
	if !CanTransition(from, to) {
		return &StateError{JobID: jobID, Status: from}
	}

	res, err := tx.exec(ctx,
		`UPDATE processing_job SET status = ? WHERE job_id = ? AND status = ?`,
		string(to), jobID, string(from))
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		job, err := getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		return &StateError{JobID: jobID, Status: job.Status}
	}
	return nil
}

func listJobInputArtifactIDs(ctx context.Context, q querier, jobID string) ([]int64, error) {
	rows, err := q.query(ctx,
		`SELECT artifact_id FROM job_input_artifact WHERE job_id = ? ORDER BY artifact_id`,
		jobID)
	if err != nil {
		return nil, fmt.Errorf("list input artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan input artifact id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate input artifacts: %w", err)
	}
	return ids, nil
}

func encodeParameters(params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode parameters: %w", err)
	}
	return string(raw), nil
}
