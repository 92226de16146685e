package metastore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMergingScheme(t *testing.T) {
	ctx, db := newTestDB(t)

	swID, err := UpsertSoftware(ctx, db, Software{Name: "qp-biom", Version: "2.1.4", Active: true})
	require.NoError(t, err)

	t.Run("command without merge parameter", func(t *testing.T) {
		cmdID, err := UpsertCommand(ctx, db, Command{SoftwareID: swID, Name: "Split libraries"})
		require.NoError(t, err)

		job, err := CreateJob(ctx, db, cmdID, map[string]any{"barcode_type": "golay_12"})
		require.NoError(t, err)

		scheme, err := ResolveMergingScheme(ctx, db, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, "Split libraries | N/A", scheme)
	})

	t.Run("command folding a parameter into the scheme", func(t *testing.T) {
		cmdID, err := UpsertCommand(ctx, db, Command{
			SoftwareID:             swID,
			Name:                   "Single Rarefaction",
			MergingScheme:          true,
			MergingSchemeParameter: "depth",
		})
		require.NoError(t, err)

		job, err := CreateJob(ctx, db, cmdID, map[string]any{"depth": "1000"})
		require.NoError(t, err)

		scheme, err := ResolveMergingScheme(ctx, db, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, "Single Rarefaction | 1000", scheme)
	})

	t.Run("merge parameter absent from the job", func(t *testing.T) {
		cmdID, err := UpsertCommand(ctx, db, Command{
			SoftwareID:             swID,
			Name:                   "Pick closed-reference OTUs",
			MergingScheme:          true,
			MergingSchemeParameter: "similarity",
		})
		require.NoError(t, err)

		job, err := CreateJob(ctx, db, cmdID, nil)
		require.NoError(t, err)

		scheme, err := ResolveMergingScheme(ctx, db, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, "Pick closed-reference OTUs | N/A", scheme)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := ResolveMergingScheme(ctx, db, "no-such-job")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestFeatureValues(t *testing.T) {
	ctx, db := newTestDB(t)

	rarefied := map[string]string{
		"AA": `{"taxonomy": "k__Bacteria"}`,
		"CA": `{"taxonomy": "k__Archaea"}`,
	}
	picked := map[string]string{
		"TG": `{"taxonomy": "k__Bacteria; p__Proteobacteria"}`,
	}

	require.NoError(t, InsertFeatureValues(ctx, db, "Single Rarefaction | N/A", rarefied))
	require.NoError(t, InsertFeatureValues(ctx, db, "Pick closed-reference OTUs | 0.97", picked))

	t.Run("all schemes", func(t *testing.T) {
		values, err := RetrieveFeatureValues(ctx, db, "", nil)
		require.NoError(t, err)
		assert.Len(t, values, 3)
		assert.Equal(t, rarefied["AA"], values["AA"])
		assert.Equal(t, picked["TG"], values["TG"])
	})

	t.Run("filtered by scheme", func(t *testing.T) {
		values, err := RetrieveFeatureValues(ctx, db, "Single Rarefaction | N/A", nil)
		require.NoError(t, err)
		assert.Equal(t, rarefied, values)
	})

	t.Run("filtered by scheme and features", func(t *testing.T) {
		values, err := RetrieveFeatureValues(ctx, db, "Single Rarefaction | N/A", []string{"CA"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"CA": rarefied["CA"]}, values)
	})

	t.Run("unknown scheme yields empty map", func(t *testing.T) {
		values, err := RetrieveFeatureValues(ctx, db, "Deblur | N/A", nil)
		require.NoError(t, err)
		require.NotNil(t, values)
		assert.Empty(t, values)
	})

	t.Run("reinsert overwrites", func(t *testing.T) {
		require.NoError(t, InsertFeatureValues(ctx, db, "Single Rarefaction | N/A", map[string]string{
			"AA": `{"taxonomy": "k__Bacteria; p__Firmicutes"}`,
		}))

		values, err := RetrieveFeatureValues(ctx, db, "Single Rarefaction | N/A", []string{"AA"})
		require.NoError(t, err)
		assert.Equal(t, `{"taxonomy": "k__Bacteria; p__Firmicutes"}`, values["AA"])
	})
}

func TestInsertFeatureValuesRequiresScheme(t *testing.T) {
	ctx, db := newTestDB(t)

	err := InsertFeatureValues(ctx, db, "", map[string]string{"AA": `"x"`})
	require.Error(t, err)
}
