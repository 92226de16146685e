package metastore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceRoundTrip(t *testing.T) {
	ctx, db := newTestDB(t)

	taxonomy := "/data/references/gg_13_8/taxonomy.txt"
	tree := "/data/references/gg_13_8/rep_set.tre"

	id, err := CreateReference(ctx, db, Reference{
		Name:             "Greengenes",
		Version:          "13_8",
		SequenceFilepath: "/data/references/gg_13_8/rep_set.fna",
		TaxonomyFilepath: &taxonomy,
		TreeFilepath:     &tree,
	})
	require.NoError(t, err)

	ref, err := GetReference(ctx, db, id)
	require.NoError(t, err)
	assert.Equal(t, "Greengenes", ref.Name)
	assert.Equal(t, "13_8", ref.Version)
	require.NotNil(t, ref.TaxonomyFilepath)
	assert.Equal(t, taxonomy, *ref.TaxonomyFilepath)
	require.NotNil(t, ref.TreeFilepath)
	assert.Equal(t, tree, *ref.TreeFilepath)

	fps := ref.Filepaths()
	require.Len(t, fps, 3)
	assert.Equal(t, FilepathEntry{Path: "/data/references/gg_13_8/rep_set.fna", Type: "reference_seqs"}, fps[0])
	assert.Equal(t, FilepathEntry{Path: taxonomy, Type: "reference_tax"}, fps[1])
	assert.Equal(t, FilepathEntry{Path: tree, Type: "reference_tree"}, fps[2])
}

func TestReferenceSequenceOnly(t *testing.T) {
	ctx, db := newTestDB(t)

	id, err := CreateReference(ctx, db, Reference{
		Name:             "Silva",
		Version:          "119",
		SequenceFilepath: "/data/references/silva_119/seqs.fna",
	})
	require.NoError(t, err)

	ref, err := GetReference(ctx, db, id)
	require.NoError(t, err)
	assert.Nil(t, ref.TaxonomyFilepath)
	assert.Nil(t, ref.TreeFilepath)

	fps := ref.Filepaths()
	require.Len(t, fps, 1)
	assert.Equal(t, "reference_seqs", fps[0].Type)
}

func TestGetReferenceNotFound(t *testing.T) {
	ctx, db := newTestDB(t)

	_, err := GetReference(ctx, db, 9000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateReferenceValidation(t *testing.T) {
	ctx, db := newTestDB(t)

	_, err := CreateReference(ctx, db, Reference{Version: "1", SequenceFilepath: "/x.fna"})
	require.Error(t, err)

	_, err = CreateReference(ctx, db, Reference{Name: "Silva", Version: "119"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence filepath")
}
