package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Software is a registered plugin: a named, versioned bundle of commands.
type Software struct {
	SoftwareID  int64
	Name        string
	Version     string
	Description string
	Active      bool
}

// Command is one operation a plugin exposes. Jobs reference commands.
type Command struct {
	CommandID   int64
	SoftwareID  int64
	Name        string
	Description string

	// MergingScheme marks commands whose outputs are archived under a
	// merging scheme; MergingSchemeParameter names the job parameter folded
	// into the scheme label.
	MergingScheme          bool
	MergingSchemeParameter string
}

// UpsertSoftware registers a plugin's software entry, returning its id.
// Re-registering the same name+version updates the description in place.
func UpsertSoftware(ctx context.Context, db *DB, sw Software) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sw.Name == "" || sw.Version == "" {
		return 0, errors.New("software name and version are required")
	}

	var id int64
	err := db.queryRow(ctx,
		`INSERT INTO software (name, version, description, active)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name, version) DO UPDATE SET
		   description = excluded.description,
		   active = excluded.active
		 RETURNING software_id`,
		sw.Name, sw.Version, sw.Description, sw.Active).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert software: %w", err)
	}
	return id, nil
}

// UpsertCommand registers a command under a software entry, returning its id.
// Re-registering the same software+name updates the mutable columns.
func UpsertCommand(ctx context.Context, db *DB, cmd Command) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cmd.SoftwareID == 0 || cmd.Name == "" {
		return 0, errors.New("command software id and name are required")
	}

	var id int64
	err := db.queryRow(ctx,
		`INSERT INTO software_command
		 (software_id, name, description, merging_scheme, merging_scheme_parameter)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(software_id, name) DO UPDATE SET
		   description = excluded.description,
		   merging_scheme = excluded.merging_scheme,
		   merging_scheme_parameter = excluded.merging_scheme_parameter
		 RETURNING command_id`,
		cmd.SoftwareID, cmd.Name, cmd.Description,
		cmd.MergingScheme, nullIfEmpty(cmd.MergingSchemeParameter)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert command: %w", err)
	}
	return id, nil
}

// GetSoftware retrieves a software entry by name and version.
func GetSoftware(ctx context.Context, db *DB, name, version string) (*Software, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var sw Software
	var description sql.NullString
	err := db.queryRow(ctx,
		`SELECT software_id, name, version, description, active
		 FROM software WHERE name = ? AND version = ?`,
		name, version).Scan(&sw.SoftwareID, &sw.Name, &sw.Version, &description, &sw.Active)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("software %s %s: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get software: %w", err)
	}

	sw.Description = description.String
	return &sw, nil
}

// GetCommand retrieves a command by id. Returns ErrNotFound when absent.
func GetCommand(ctx context.Context, db *DB, commandID int64) (*Command, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return getCommand(ctx, db, commandID)
}

func getCommand(ctx context.Context, q querier, commandID int64) (*Command, error) {
	var cmd Command
	var description, schemeParam sql.NullString

	err := q.queryRow(ctx,
		`SELECT command_id, software_id, name, description, merging_scheme, merging_scheme_parameter
		 FROM software_command WHERE command_id = ?`,
		commandID).Scan(
		&cmd.CommandID, &cmd.SoftwareID, &cmd.Name, &description,
		&cmd.MergingScheme, &schemeParam)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("command %d: %w", commandID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get command: %w", err)
	}

	cmd.Description = description.String
	cmd.MergingSchemeParameter = schemeParam.String
	return &cmd, nil
}

// ListCommands returns a software entry's commands ordered by name.
func ListCommands(ctx context.Context, db *DB, softwareID int64) ([]Command, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := db.query(ctx,
		`SELECT command_id, software_id, name, description, merging_scheme, merging_scheme_parameter
		 FROM software_command WHERE software_id = ? ORDER BY name`,
		softwareID)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var commands []Command
	for rows.Next() {
		var cmd Command
		var description, schemeParam sql.NullString
		if err := rows.Scan(
			&cmd.CommandID, &cmd.SoftwareID, &cmd.Name, &description,
			&cmd.MergingScheme, &schemeParam); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmd.Description = description.String
		cmd.MergingSchemeParameter = schemeParam.String
		commands = append(commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return commands, nil
}

// ListSoftware returns every registered software entry ordered by name, version.
func ListSoftware(ctx context.Context, db *DB) ([]Software, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := db.query(ctx,
		`SELECT software_id, name, version, description, active
		 FROM software ORDER BY name, version`)
	if err != nil {
		return nil, fmt.Errorf("list software: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Software
	for rows.Next() {
		var sw Software
		var description sql.NullString
		if err := rows.Scan(&sw.SoftwareID, &sw.Name, &sw.Version, &description, &sw.Active); err != nil {
			return nil, fmt.Errorf("scan software: %w", err)
		}
		sw.Description = description.String
		entries = append(entries, sw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate software: %w", err)
	}
	return entries, nil
}
