package pluginreg

import (
	"context"
	"fmt"

	"github.com/3leaps/gobiome/pkg/metastore"
)

// SyncResult reports what a manifest registration touched.
type SyncResult struct {
	SoftwareID int64
	Software   string
	Version    string
	CommandIDs map[string]int64
}

// Sync registers a manifest's software and commands in the metadata store.
// Registration is idempotent: re-syncing the same manifest updates
// descriptions in place and never duplicates rows.
func Sync(ctx context.Context, db *metastore.DB, m *Manifest) (*SyncResult, error) {
	swID, err := metastore.UpsertSoftware(ctx, db, metastore.Software{
		Name:        m.Software.Name,
		Version:     m.Software.Version,
		Description: m.Software.Description,
		Active:      m.Software.IsActive(),
	})
	if err != nil {
		return nil, fmt.Errorf("register software %s %s: %w", m.Software.Name, m.Software.Version, err)
	}

	result := &SyncResult{
		SoftwareID: swID,
		Software:   m.Software.Name,
		Version:    m.Software.Version,
		CommandIDs: make(map[string]int64, len(m.Commands)),
	}

	for _, cmd := range m.Commands {
		spec := metastore.Command{
			SoftwareID:  swID,
			Name:        cmd.Name,
			Description: cmd.Description,
		}
		if cmd.MergingScheme != nil {
			spec.MergingScheme = true
			spec.MergingSchemeParameter = cmd.MergingScheme.Parameter
		}

		cmdID, err := metastore.UpsertCommand(ctx, db, spec)
		if err != nil {
			return nil, fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
		result.CommandIDs[cmd.Name] = cmdID
	}

	return result, nil
}

// SyncAll registers every manifest, in order. The first failure stops the
// sync; manifests already registered stay registered.
func SyncAll(ctx context.Context, db *metastore.DB, manifests []*Manifest) ([]*SyncResult, error) {
	results := make([]*SyncResult, 0, len(manifests))
	for _, m := range manifests {
		res, err := Sync(ctx, db, m)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
