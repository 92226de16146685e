package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/gobiome/internal/config"
	"github.com/3leaps/gobiome/internal/observability"
	"github.com/3leaps/gobiome/internal/rediscache"
	"github.com/3leaps/gobiome/pkg/metastore"
)

var doctorDBPath string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run deployment diagnostic checks",
	Long: `Run diagnostic checks against the configured deployment and suggest
fixes for common issues.

Examples:
  gobiome doctor                  # Full deployment check
  gobiome doctor --db gobiome.db  # Check an embedded sqlite deployment`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVar(&doctorDBPath, "db", "", "SQLite database path (overrides the postgres settings)")
}

func runDoctor(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	observability.CLILogger.Info("=== gobiome doctor ===")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Running diagnostic checks...")
	observability.CLILogger.Info("")

	allChecks := true
	checkNum := 1
	totalChecks := 4

	// Check 1: settings file
	settingsPath := configPath
	if settingsPath == "" {
		settingsPath = config.ResolvePath()
	}
	settings, err := config.LoadFile(settingsPath)
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking settings... ❌ %v", checkNum, totalChecks, err),
			zap.String("path", settingsPath))
		printSettingsHelp()
		return
	}
	if settings.Redis.Host != "" {
		totalChecks = 5
	}
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking settings... ✅ %s", checkNum, totalChecks, settingsPath),
		zap.String("path", settingsPath))
	checkNum++

	// Check 2: data directories
	dirsOK := true
	for _, dir := range []string{settings.Main.BaseDataDir, settings.Main.UploadDataDir} {
		if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
			observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking data directories... ❌ %s is not usable", checkNum, totalChecks, dir),
				zap.String("dir", dir))
			dirsOK = false
			allChecks = false
		}
	}
	if dirsOK {
		observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking data directories... ✅ base and upload present", checkNum, totalChecks),
			zap.String("base_data_dir", settings.Main.BaseDataDir),
			zap.String("upload_data_dir", settings.Main.UploadDataDir))
	}
	checkNum++

	// Check 3: environment
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking environment... ✅ %s/%s", checkNum, totalChecks, runtime.GOOS, runtime.GOARCH),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))
	checkNum++

	// Check 4: metadata store
	db, err := metastore.Open(ctx, storeConfig(settings, doctorDBPath))
	if err != nil {
		observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking metadata store... ❌ %v", checkNum, totalChecks, err))
		allChecks = false
	} else {
		version, verErr := metastore.CurrentSchemaVersion(ctx, db)
		switch {
		case verErr != nil:
			observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking metadata store... ⚠️  reachable but uninitialized (run 'gobiome env make')", checkNum, totalChecks))
			allChecks = false
		case version != metastore.SchemaVersion:
			observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking metadata store... ⚠️  schema v%d, want v%d (run 'gobiome env make')", checkNum, totalChecks, version, metastore.SchemaVersion),
				zap.Int("schema_version", version))
			allChecks = false
		default:
			observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking metadata store... ✅ %s schema v%d", checkNum, totalChecks, db.Dialect(), version),
				zap.Int("schema_version", version))
		}
		_ = db.Close()
	}
	checkNum++

	// Check 5: redis, only when configured
	if settings.Redis.Host != "" {
		cache := rediscache.New(rediscache.Config{
			Host:     settings.Redis.Host,
			Port:     settings.Redis.Port,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		}, nil)
		if err := cache.Ping(ctx); err != nil {
			observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking redis... ⚠️  %v (server degrades to store-only)", checkNum, totalChecks, err),
				zap.String("host", settings.Redis.Host))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking redis... ✅ %s:%d", checkNum, totalChecks, settings.Redis.Host, settings.Redis.Port))
		}
		_ = cache.Close()
	}

	observability.CLILogger.Info("")
	if allChecks {
		observability.CLILogger.Info("✅ All checks passed! Your gobiome deployment is healthy.")
	} else {
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")
}

// printSettingsHelp prints help for locating the settings file.
func printSettingsHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To point gobiome at a settings file:")
	observability.CLILogger.Info("  1. Set GOBIOME_CONFIG_FP to the file path, or")
	observability.CLILogger.Info("  2. Pass --config /path/to/settings.cfg, or")
	observability.CLILogger.Info("  3. Run from a checkout containing support_files/config_test.cfg")
	observability.CLILogger.Info("")
}
