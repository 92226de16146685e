package metastore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSoftwareIsIdempotent(t *testing.T) {
	ctx, db := newTestDB(t)

	first, err := UpsertSoftware(ctx, db, Software{
		Name: "qp-target-gene", Version: "0.1.0", Description: "initial", Active: true,
	})
	require.NoError(t, err)

	second, err := UpsertSoftware(ctx, db, Software{
		Name: "qp-target-gene", Version: "0.1.0", Description: "updated", Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sw, err := GetSoftware(ctx, db, "qp-target-gene", "0.1.0")
	require.NoError(t, err)
	assert.Equal(t, "updated", sw.Description)
	assert.True(t, sw.Active)
}

func TestUpsertCommandIsIdempotent(t *testing.T) {
	ctx, db := newTestDB(t)

	swID, err := UpsertSoftware(ctx, db, Software{Name: "qp-biom", Version: "1.0.0", Active: true})
	require.NoError(t, err)

	first, err := UpsertCommand(ctx, db, Command{
		SoftwareID: swID, Name: "Single Rarefaction",
	})
	require.NoError(t, err)

	second, err := UpsertCommand(ctx, db, Command{
		SoftwareID:             swID,
		Name:                   "Single Rarefaction",
		Description:            "rarefy to an even depth",
		MergingScheme:          true,
		MergingSchemeParameter: "depth",
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cmd, err := GetCommand(ctx, db, first)
	require.NoError(t, err)
	assert.Equal(t, "rarefy to an even depth", cmd.Description)
	assert.True(t, cmd.MergingScheme)
	assert.Equal(t, "depth", cmd.MergingSchemeParameter)
}

func TestListCommands(t *testing.T) {
	ctx, db := newTestDB(t)

	swID, err := UpsertSoftware(ctx, db, Software{Name: "qp-biom", Version: "1.0.0", Active: true})
	require.NoError(t, err)

	_, err = UpsertCommand(ctx, db, Command{SoftwareID: swID, Name: "Summarize Taxa"})
	require.NoError(t, err)
	_, err = UpsertCommand(ctx, db, Command{SoftwareID: swID, Name: "Beta Diversity"})
	require.NoError(t, err)

	commands, err := ListCommands(ctx, db, swID)
	require.NoError(t, err)
	require.Len(t, commands, 2)
	assert.Equal(t, "Beta Diversity", commands[0].Name)
	assert.Equal(t, "Summarize Taxa", commands[1].Name)
}

func TestListSoftware(t *testing.T) {
	ctx, db := newTestDB(t)

	_, err := UpsertSoftware(ctx, db, Software{Name: "qp-target-gene", Version: "0.1.0", Active: true})
	require.NoError(t, err)
	_, err = UpsertSoftware(ctx, db, Software{Name: "qp-biom", Version: "1.0.0", Active: true})
	require.NoError(t, err)

	entries, err := ListSoftware(ctx, db)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "qp-biom", entries[0].Name)
	assert.Equal(t, "qp-target-gene", entries[1].Name)
}

func TestGetSoftwareNotFound(t *testing.T) {
	ctx, db := newTestDB(t)

	_, err := GetSoftware(ctx, db, "qp-unknown", "0.0.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetCommandNotFound(t *testing.T) {
	ctx, db := newTestDB(t)

	_, err := GetCommand(ctx, db, 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
