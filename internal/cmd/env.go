package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/3leaps/gobiome/pkg/metastore"
)

var (
	envDBPath string
	envForce  bool
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the metadata store schema",
	Long: `Manage the metadata store schema.

The store backend comes from the postgres section of the settings file, or
from --db for an embedded sqlite database.`,
}

var envMakeCmd = &cobra.Command{
	Use:   "make",
	Short: "Create or upgrade the schema",
	RunE:  runEnvMake,
}

var envDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the schema and all data",
	RunE:  runEnvDrop,
}

var envStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the schema version",
	RunE:  runEnvStatus,
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.AddCommand(envMakeCmd)
	envCmd.AddCommand(envDropCmd)
	envCmd.AddCommand(envStatusCmd)

	envCmd.PersistentFlags().StringVar(&envDBPath, "db", "", "SQLite database path (overrides the postgres settings)")
	envDropCmd.Flags().BoolVar(&envForce, "force", false, "Skip the safety check")
}

func runEnvMake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, db, err := openStore(ctx, envDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := metastore.Migrate(ctx, db); err != nil {
		return err
	}

	version, err := metastore.CurrentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, "Environment ready")
	_, _ = fmt.Fprintf(os.Stdout, "dialect=%s\n", db.Dialect())
	_, _ = fmt.Fprintf(os.Stdout, "schema_version=%d\n", version)
	return nil
}

func runEnvDrop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !envForce {
		return fmt.Errorf("refusing to drop the schema without --force")
	}

	_, db, err := openStore(ctx, envDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := metastore.DropSchema(ctx, db); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, "Environment dropped")
	return nil
}

func runEnvStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, db, err := openStore(ctx, envDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	version, err := metastore.CurrentSchemaVersion(ctx, db)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stdout, "Environment not initialized")
		_, _ = fmt.Fprintf(os.Stdout, "dialect=%s\n", db.Dialect())
		return nil
	}

	_, _ = fmt.Fprintf(os.Stdout, "dialect=%s\n", db.Dialect())
	_, _ = fmt.Fprintf(os.Stdout, "schema_version=%d\n", version)
	_, _ = fmt.Fprintf(os.Stdout, "schema_current=%t\n", version == metastore.SchemaVersion)
	return nil
}
