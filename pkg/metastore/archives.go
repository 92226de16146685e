package metastore

import (
	"context"
	"fmt"
	"strings"
)

// ResolveMergingScheme derives the archive merging scheme for a job from its
// command. Commands that do not fold a parameter into the scheme map to
// "<command name> | N/A".
func ResolveMergingScheme(ctx context.Context, db *DB, jobID string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	job, err := getJob(ctx, db, jobID)
	if err != nil {
		return "", err
	}
	cmd, err := getCommand(ctx, db, job.CommandID)
	if err != nil {
		return "", err
	}

	part := "N/A"
	if cmd.MergingScheme && cmd.MergingSchemeParameter != "" {
		if v, ok := job.Parameters[cmd.MergingSchemeParameter]; ok {
			part = fmt.Sprint(v)
		}
	}
	return cmd.Name + " | " + part, nil
}

// InsertFeatureValues stores feature values under a merging scheme,
// overwriting previous values for the same feature. Values are expected to
// be serialized JSON.
func InsertFeatureValues(ctx context.Context, db *DB, scheme string, values map[string]string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if scheme == "" {
		return fmt.Errorf("merging scheme is required")
	}
	if len(values) == 0 {
		return nil
	}

	return WithTx(ctx, db, func(tx *Tx) error {
		for feature, value := range values {
			if _, err := tx.exec(ctx,
				`INSERT INTO archive_feature_value (merging_scheme, feature, feature_value)
				 VALUES (?, ?, ?)
				 ON CONFLICT(merging_scheme, feature) DO UPDATE SET
				   feature_value = excluded.feature_value`,
				scheme, feature, value); err != nil {
				return fmt.Errorf("insert feature %s: %w", feature, err)
			}
		}
		return nil
	})
}

// RetrieveFeatureValues returns stored feature values. An empty scheme means
// all schemes; a nil feature list means all features. An unknown scheme
// yields an empty map.
func RetrieveFeatureValues(ctx context.Context, db *DB, scheme string, features []string) (map[string]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT feature, feature_value FROM archive_feature_value`
	var conds []string
	var args []any

	if scheme != "" {
		conds = append(conds, "merging_scheme = ?")
		args = append(args, scheme)
	}
	if len(features) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(features)), ", ")
		conds = append(conds, "feature IN ("+placeholders+")")
		for _, f := range features {
			args = append(args, f)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY merging_scheme, feature"

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve feature values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := map[string]string{}
	for rows.Next() {
		var feature, value string
		if err := rows.Scan(&feature, &value); err != nil {
			return nil, fmt.Errorf("scan feature value: %w", err)
		}
		values[feature] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature values: %w", err)
	}
	return values, nil
}
