package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/gobiome/internal/observability"
	"github.com/3leaps/gobiome/internal/rediscache"
	"github.com/3leaps/gobiome/internal/server"
	"github.com/3leaps/gobiome/internal/server/handlers"
	"github.com/3leaps/gobiome/pkg/metastore"
)

var (
	serveHost   string
	servePort   int
	serveDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gobiome API server",
	Long: `Run the gobiome API server.

Loads the settings file, opens the metadata store, applies pending schema
migrations, and serves the REST API until interrupted. Redis caching is
enabled when the redis section names a host.

Examples:
  gobiome serve
  gobiome serve --host 0.0.0.0 --port 21174
  gobiome serve --db ./gobiome.db   # embedded store for local work`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (overrides settings)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (overrides settings)")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "SQLite database path (overrides the postgres settings)")
}

// signalHealthChecker reports process liveness. It has no dependencies and
// always succeeds; its presence keeps the checker registry non-empty.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil
}

// storeHealthChecker pings the metadata store.
type storeHealthChecker struct {
	db *metastore.DB
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("store not initialized")
	}
	return c.db.PingContext(ctx)
}

// redisHealthChecker pings the cache.
type redisHealthChecker struct {
	cache *rediscache.Cache
}

func (c redisHealthChecker) CheckHealth(ctx context.Context) error {
	if c.cache == nil {
		return fmt.Errorf("cache not initialized")
	}
	return c.cache.Ping(ctx)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, db, err := openStore(ctx, serveDBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := metastore.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	logger, err := observability.NewServerLogger(verbose)
	if err != nil {
		return fmt.Errorf("build server logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	host := settings.Main.Host
	if serveHost != "" {
		host = serveHost
	}
	port := settings.Main.Port
	if servePort != 0 {
		port = servePort
	}

	var cache *rediscache.Cache
	if settings.Redis.Host != "" {
		cache = rediscache.New(rediscache.Config{
			Host:     settings.Redis.Host,
			Port:     settings.Redis.Port,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		}, logger)
		defer func() { _ = cache.Close() }()

		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, continuing without cache hits", zap.Error(err))
		}
	}

	handlers.SetBuildInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
	handlers.InitHealthManager(versionInfo.Version)
	manager := handlers.GetHealthManager()
	manager.RegisterChecker("signal", signalHealthChecker{})
	manager.RegisterChecker("store", storeHealthChecker{db: db})
	if cache != nil {
		manager.RegisterChecker("redis", redisHealthChecker{cache: cache})
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithStore(db),
	}
	if cache != nil {
		opts = append(opts, server.WithCache(cache))
	}

	srv := server.New(host, port, opts...)

	logger.Info("starting gobiome server",
		zap.String("host", host),
		zap.Int("port", port),
		zap.String("version", versionInfo.Version),
		zap.Bool("redis", cache != nil))

	return srv.Start(ctx)
}
