package pluginreg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/gobiome/pkg/metastore"
)

func newSyncTestDB(t *testing.T) (context.Context, *metastore.DB) {
	t.Helper()

	ctx := context.Background()
	db, err := metastore.Open(ctx, metastore.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, metastore.Migrate(ctx, db))
	return ctx, db
}

func TestSyncRegistersSoftwareAndCommands(t *testing.T) {
	ctx, db := newSyncTestDB(t)

	m, err := LoadFromBytes([]byte(fullManifestYAML()), "plugin.yaml")
	require.NoError(t, err)

	result, err := Sync(ctx, db, m)
	require.NoError(t, err)
	assert.Equal(t, "target-gene", result.Software)
	assert.Len(t, result.CommandIDs, 2)

	sw, err := metastore.GetSoftware(ctx, db, "target-gene", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Amplicon analysis pipeline", sw.Description)
	assert.False(t, sw.Active)

	pickID := result.CommandIDs["Pick closed-reference OTUs"]
	require.NotZero(t, pickID)
	cmd, err := metastore.GetCommand(ctx, db, pickID)
	require.NoError(t, err)
	assert.True(t, cmd.MergingScheme)
	assert.Equal(t, "reference", cmd.MergingSchemeParameter)
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx, db := newSyncTestDB(t)

	m, err := LoadFromBytes([]byte(validManifestYAML()), "plugin.yaml")
	require.NoError(t, err)

	first, err := Sync(ctx, db, m)
	require.NoError(t, err)

	m.Software.Description = "updated description"
	second, err := Sync(ctx, db, m)
	require.NoError(t, err)

	assert.Equal(t, first.SoftwareID, second.SoftwareID)
	assert.Equal(t, first.CommandIDs["Deblur 16S"], second.CommandIDs["Deblur 16S"])

	sw, err := metastore.GetSoftware(ctx, db, "deblur", "2021.09")
	require.NoError(t, err)
	assert.Equal(t, "updated description", sw.Description)

	commands, err := metastore.ListCommands(ctx, db, first.SoftwareID)
	require.NoError(t, err)
	assert.Len(t, commands, 1)
}

func TestSyncAll(t *testing.T) {
	ctx, db := newSyncTestDB(t)

	deblur, err := LoadFromBytes([]byte(validManifestYAML()), "plugin.yaml")
	require.NoError(t, err)
	target, err := LoadFromBytes([]byte(fullManifestYAML()), "plugin.yaml")
	require.NoError(t, err)

	results, err := SyncAll(ctx, db, []*Manifest{deblur, target})
	require.NoError(t, err)
	require.Len(t, results, 2)

	all, err := metastore.ListSoftware(ctx, db)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
