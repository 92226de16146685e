package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/3leaps/gobiome/internal/errors"
	"github.com/3leaps/gobiome/pkg/metastore"
)

// ReferencesAPI serves reference filepath lookups. Unlike the job and
// archive handlers, failures here map onto HTTP status codes: 404 for an
// unknown reference, 500 for instantiation errors.
type ReferencesAPI struct {
	db *metastore.DB
}

// NewReferencesAPI builds the reference handlers.
func NewReferencesAPI(db *metastore.DB) *ReferencesAPI {
	return &ReferencesAPI{db: db}
}

// referenceResponse lists the reference's files as [path, type] pairs.
// Taxonomy and tree entries are omitted when unset.
type referenceResponse struct {
	Filepaths [][2]string `json:"filepaths"`
}

// Filepaths handles GET /references/{id}.
func (a *ReferencesAPI) Filepaths(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	referenceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, r, apperrors.NotFound("reference does not exist"))
		return
	}

	ref, err := metastore.GetReference(ctx, a.db, referenceID)
	switch {
	case errors.Is(err, metastore.ErrNotFound):
		respondWithError(w, r, apperrors.NotFound("reference does not exist"))
		return
	case err != nil:
		respondWithError(w, r, apperrors.Internal(fmt.Sprintf("Error instantiating the reference: %s", err), err))
		return
	}

	resp := referenceResponse{Filepaths: make([][2]string, 0, 3)}
	for _, fp := range ref.Filepaths() {
		resp.Filepaths = append(resp.Filepaths, [2]string{fp.Path, fp.Type})
	}
	writeJSON(w, http.StatusOK, resp)
}
