package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/3leaps/gobiome/pkg/pluginreg"
)

var (
	pluginsDir    string
	pluginsDBPath string
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage plugin registrations",
	Long: `Manage plugin registrations.

Plugins describe themselves with a plugin.yaml manifest: the software entry
they register under and the commands they expose. 'plugins list' shows the
manifests found under --dir; 'plugins sync' registers them in the metadata
store so jobs can reference their commands.`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered plugin manifests",
	RunE:  runPluginsList,
}

var pluginsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Register discovered plugins in the store",
	RunE:  runPluginsSync,
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsSyncCmd)

	pluginsCmd.PersistentFlags().StringVar(&pluginsDir, "dir", "support_files/plugins", "Directory to scan for plugin manifests")
	pluginsListCmd.Flags().Bool("json", false, "Output as JSON")
	pluginsSyncCmd.Flags().StringVar(&pluginsDBPath, "db", "", "SQLite database path (overrides the postgres settings)")
}

func runPluginsList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	manifests, err := pluginreg.DiscoverAndLoad(pluginsDir)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No plugin manifests found")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(manifests)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, "SOFTWARE\tVERSION\tACTIVE\tCOMMANDS")
	for _, m := range manifests {
		names := make([]string, 0, len(m.Commands))
		for _, c := range m.Commands {
			names = append(names, c.Name)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
			m.Software.Name,
			m.Software.Version,
			m.Software.IsActive(),
			strings.Join(names, ", "),
		)
	}

	return nil
}

func runPluginsSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	manifests, err := pluginreg.DiscoverAndLoad(pluginsDir)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No plugin manifests found")
		return nil
	}

	_, db, err := openStore(ctx, pluginsDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	results, err := pluginreg.SyncAll(ctx, db, manifests)
	for _, res := range results {
		_, _ = fmt.Fprintf(os.Stdout, "registered=%s %s commands=%d\n",
			res.Software, res.Version, len(res.CommandIDs))
	}
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "synced=%d\n", len(results))
	return nil
}
