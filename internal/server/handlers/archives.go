package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/3leaps/gobiome/internal/errors"
	"github.com/3leaps/gobiome/pkg/metastore"
)

// ArchivesAPI serves the archived feature-value endpoints. The merging
// scheme is always resolved from a job id, mirroring how plugin runners
// address archives.
type ArchivesAPI struct {
	db *metastore.DB
}

// NewArchivesAPI builds the archive handlers.
func NewArchivesAPI(db *metastore.DB) *ArchivesAPI {
	return &ArchivesAPI{db: db}
}

// Observations handles POST /archives/observations. Form fields: job_id,
// features (repeated). The response is the feature→value mapping for the
// job's merging scheme; unknown features are simply absent.
func (a *ArchivesAPI) Observations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed form payload"))
		return
	}
	jobID := r.Form.Get("job_id")
	features := r.Form["features"]

	scheme, err := metastore.ResolveMergingScheme(ctx, a.db, jobID)
	if err != nil {
		writeJSON(w, http.StatusOK, opResponse{Error: lookupErrorMessage(err)})
		return
	}

	values, err := metastore.RetrieveFeatureValues(ctx, a.db, scheme, features)
	if err != nil {
		writeJSON(w, http.StatusOK, opResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// UpdateObservations handles PATCH /archives/observations. Form fields:
// path (a job id), value (a JSON object of feature→value). The values are
// inserted under the job's merging scheme and echoed back.
func (a *ArchivesAPI) UpdateObservations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed form payload"))
		return
	}
	jobID := r.Form.Get("path")
	rawValues := r.Form.Get("value")

	var values map[string]string
	if err := json.Unmarshal([]byte(rawValues), &values); err != nil {
		respondWithError(w, r, apperrors.BadRequest("value must be a JSON object of feature to value"))
		return
	}

	scheme, err := metastore.ResolveMergingScheme(ctx, a.db, jobID)
	if err != nil {
		writeJSON(w, http.StatusOK, opResponse{Error: lookupErrorMessage(err)})
		return
	}

	if err := metastore.InsertFeatureValues(ctx, a.db, scheme, values); err != nil {
		writeJSON(w, http.StatusOK, opResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, values)
}
