package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/3leaps/gobiome/internal/errors"
	"github.com/3leaps/gobiome/internal/rediscache"
	"github.com/3leaps/gobiome/pkg/metastore"
)

// JobsAPI serves the processing-job lifecycle endpoints. Domain failures
// (unknown job, illegal state) are reported as {"success": false, "error":
// "..."} with HTTP 200; only malformed payloads use the error envelope.
type JobsAPI struct {
	db    *metastore.DB
	cache *rediscache.Cache
}

// NewJobsAPI builds the job handlers. cache may be nil.
func NewJobsAPI(db *metastore.DB, cache *rediscache.Cache) *JobsAPI {
	return &JobsAPI{db: db, cache: cache}
}

// jobResponse is the body of GET /jobs/{id}. Command, parameters, and
// status are null when the lookup fails.
type jobResponse struct {
	Success    bool           `json:"success"`
	Error      string         `json:"error"`
	Command    *string        `json:"command"`
	Parameters map[string]any `json:"parameters"`
	Status     *string        `json:"status"`
}

// opResponse is the body of the heartbeat, step, and complete endpoints.
type opResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// lookupErrorMessage maps a job lookup failure onto the wire contract:
// unknown ids report "Job does not exist", anything else reports the
// instantiation detail.
func lookupErrorMessage(err error) string {
	if errors.Is(err, metastore.ErrNotFound) {
		return "Job does not exist"
	}
	return fmt.Sprintf("Error instantiating the job: %s", err)
}

// Status handles GET /jobs/{id}.
func (a *JobsAPI) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	if a.cache != nil {
		if payload, ok := a.cache.JobPayload(ctx, jobID); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(payload)
			return
		}
	}

	resp := a.jobStatus(ctx, jobID)
	if a.cache != nil && resp.Success {
		if payload, err := json.Marshal(resp); err == nil {
			a.cache.StoreJobPayload(ctx, jobID, payload)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *JobsAPI) jobStatus(ctx context.Context, jobID string) jobResponse {
	job, err := metastore.GetJob(ctx, a.db, jobID)
	if err != nil {
		return jobResponse{Error: lookupErrorMessage(err)}
	}
	cmd, err := metastore.GetCommand(ctx, a.db, job.CommandID)
	if err != nil {
		return jobResponse{Error: fmt.Sprintf("Error instantiating the job: %s", err)}
	}

	status := string(job.Status)
	return jobResponse{
		Success:    true,
		Command:    &cmd.Name,
		Parameters: job.Parameters,
		Status:     &status,
	}
}

// Heartbeat handles POST /jobs/{id}/heartbeat. A queued job is promoted
// to running; a running job only refreshes its heartbeat; a finished job
// is rejected.
func (a *JobsAPI) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	resp := opResponse{Success: true}
	if err := metastore.Heartbeat(ctx, a.db, jobID); err != nil {
		var stateErr *metastore.StateError
		switch {
		case errors.As(err, &stateErr):
			resp = opResponse{Error: fmt.Sprintf("Job already finished. Status: %s", stateErr.Status)}
		default:
			resp = opResponse{Error: lookupErrorMessage(err)}
		}
	} else if a.cache != nil {
		a.cache.InvalidateJob(ctx, jobID)
	}
	writeJSON(w, http.StatusOK, resp)
}

type stepRequest struct {
	Step string `json:"step"`
}

// Step handles POST /jobs/{id}/step. The job must be running.
func (a *JobsAPI) Step(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	var payload stepRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed step payload"))
		return
	}

	resp := opResponse{Success: true}
	if err := metastore.SetStep(ctx, a.db, jobID, payload.Step); err != nil {
		var stateErr *metastore.StateError
		switch {
		case errors.As(err, &stateErr):
			resp = opResponse{Error: "Job in a non-running state"}
		default:
			resp = opResponse{Error: lookupErrorMessage(err)}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type completeRequest struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Artifacts []artifactPayload `json:"artifacts"`
}

type artifactPayload struct {
	Filepaths             [][2]string `json:"filepaths"`
	ArtifactType          string      `json:"artifact_type"`
	CanBeSubmittedToEBI   bool        `json:"can_be_submitted_to_ebi"`
	CanBeSubmittedToVAMPS bool        `json:"can_be_submitted_to_vamps"`
}

// Complete handles POST /jobs/{id}/complete. On success one artifact is
// created per payload entry, linked to the job's input artifacts and
// parameters; on failure a log entry is attached. Both paths run in a
// single transaction with the status change.
func (a *JobsAPI) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	var payload completeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed completion payload"))
		return
	}

	completion := metastore.Completion{
		Success: payload.Success,
		Error:   payload.Error,
	}
	for _, artifact := range payload.Artifacts {
		spec := metastore.ArtifactSpec{
			ArtifactType:          artifact.ArtifactType,
			CanBeSubmittedToEBI:   artifact.CanBeSubmittedToEBI,
			CanBeSubmittedToVAMPS: artifact.CanBeSubmittedToVAMPS,
		}
		for _, fp := range artifact.Filepaths {
			spec.Filepaths = append(spec.Filepaths, metastore.FilepathEntry{Path: fp[0], Type: fp[1]})
		}
		completion.Artifacts = append(completion.Artifacts, spec)
	}

	resp := opResponse{Success: true}
	if err := metastore.CompleteJob(ctx, a.db, jobID, completion); err != nil {
		var stateErr *metastore.StateError
		switch {
		case errors.As(err, &stateErr):
			resp = opResponse{Error: "Job in a non-running state."}
		default:
			resp = opResponse{Error: lookupErrorMessage(err)}
		}
	} else if a.cache != nil {
		a.cache.InvalidateJob(ctx, jobID)
	}
	writeJSON(w, http.StatusOK, resp)
}
