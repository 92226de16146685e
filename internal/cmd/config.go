package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/3leaps/gobiome/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect settings",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the settings file",
	Long: `Load and validate the settings file, printing a summary of the resolved
deployment. Fails when a required section or option is missing, a typed
option does not parse, or a data directory does not exist.`,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.ResolvePath()
	}

	settings, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(os.Stdout, "Settings OK")
	_, _ = fmt.Fprintf(os.Stdout, "path=%s\n", path)
	_, _ = fmt.Fprintf(os.Stdout, "test_environment=%t\n", settings.Main.TestEnvironment)
	_, _ = fmt.Fprintf(os.Stdout, "base_data_dir=%s\n", settings.Main.BaseDataDir)
	_, _ = fmt.Fprintf(os.Stdout, "upload_data_dir=%s\n", settings.Main.UploadDataDir)
	_, _ = fmt.Fprintf(os.Stdout, "server=%s:%d\n", settings.Main.Host, settings.Main.Port)
	_, _ = fmt.Fprintf(os.Stdout, "postgres=%s@%s:%d/%s\n",
		settings.Postgres.User, settings.Postgres.Host, settings.Postgres.Port, settings.Postgres.Database)
	if settings.Redis.Host != "" {
		_, _ = fmt.Fprintf(os.Stdout, "redis=%s:%d db=%d\n", settings.Redis.Host, settings.Redis.Port, settings.Redis.DB)
	} else {
		_, _ = fmt.Fprintln(os.Stdout, "redis=disabled")
	}
	return nil
}
