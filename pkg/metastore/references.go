package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Reference is a reference database: a required sequence file plus optional
// taxonomy and tree files.
type Reference struct {
	ReferenceID      int64
	Name             string
	Version          string
	SequenceFilepath string
	TaxonomyFilepath *string
	TreeFilepath     *string
}

// Filepaths returns the reference's files in canonical order with their
// declared types. The sequence file is always present; taxonomy and tree
// follow only when set.
func (r *Reference) Filepaths() []FilepathEntry {
	fps := []FilepathEntry{{Path: r.SequenceFilepath, Type: "reference_seqs"}}
	if r.TaxonomyFilepath != nil {
		fps = append(fps, FilepathEntry{Path: *r.TaxonomyFilepath, Type: "reference_tax"})
	}
	if r.TreeFilepath != nil {
		fps = append(fps, FilepathEntry{Path: *r.TreeFilepath, Type: "reference_tree"})
	}
	return fps
}

// CreateReference stores a reference entry and returns its id.
func CreateReference(ctx context.Context, db *DB, ref Reference) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ref.Name == "" || ref.Version == "" {
		return 0, errors.New("reference name and version are required")
	}
	if ref.SequenceFilepath == "" {
		return 0, errors.New("reference sequence filepath is required")
	}

	var id int64
	err := db.queryRow(ctx,
		`INSERT INTO reference
		 (name, version, sequence_filepath, taxonomy_filepath, tree_filepath)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING reference_id`,
		ref.Name, ref.Version, ref.SequenceFilepath,
		ref.TaxonomyFilepath, ref.TreeFilepath).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert reference: %w", err)
	}
	return id, nil
}

// GetReference retrieves a reference by id. Returns ErrNotFound when absent.
func GetReference(ctx context.Context, db *DB, referenceID int64) (*Reference, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var ref Reference
	var taxonomy, tree sql.NullString

	err := db.queryRow(ctx,
		`SELECT reference_id, name, version, sequence_filepath, taxonomy_filepath, tree_filepath
		 FROM reference WHERE reference_id = ?`,
		referenceID).Scan(
		&ref.ReferenceID, &ref.Name, &ref.Version, &ref.SequenceFilepath,
		&taxonomy, &tree)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reference %d: %w", referenceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get reference: %w", err)
	}

	if taxonomy.Valid {
		ref.TaxonomyFilepath = &taxonomy.String
	}
	if tree.Valid {
		ref.TreeFilepath = &tree.String
	}
	return &ref, nil
}
