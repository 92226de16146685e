package metastore

import "time"

// JobStatus tracks a processing job through its lifecycle.
type JobStatus string

const (
	// JobQueued means the job is registered but no runner has claimed it.
	JobQueued JobStatus = "queued"
	// JobRunning means a runner has sent a heartbeat and is working the job.
	JobRunning JobStatus = "running"
	// JobSuccess means the job finished and its artifacts are stored.
	JobSuccess JobStatus = "success"
	// JobError means the job failed; a log entry records the reason.
	JobError JobStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError
}

// jobTransitions lists the allowed status moves. Terminal states absorb.
var jobTransitions = map[JobStatus][]JobStatus{
	JobQueued:  {JobRunning},
	JobRunning: {JobSuccess, JobError},
	JobSuccess: {},
	JobError:   {},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is one row of processing_job.
type Job struct {
	JobID      string
	CommandID  int64
	Status     JobStatus
	Step       *string
	Heartbeat  *time.Time
	Parameters map[string]any
	LogID      *int64
	CreatedAt  time.Time
}

// FilepathEntry pairs a stored file with its declared role, e.g.
// ("/data/seqs.fna", "reference_seqs") or ("/data/table.biom", "biom").
type FilepathEntry struct {
	Path string
	Type string
}
