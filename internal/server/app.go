// Package server initializes and runs the file server.
// It selects the storage backend, applies migrations, and runs the HTTP API,
// the gRPC health service and the background sweeper until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/access"
	"github.com/dmitrijs2005/gophfiles/internal/server/auth"
	"github.com/dmitrijs2005/gophfiles/internal/server/blobstore"
	"github.com/dmitrijs2005/gophfiles/internal/server/cache"
	"github.com/dmitrijs2005/gophfiles/internal/server/config"
	"github.com/dmitrijs2005/gophfiles/internal/server/httpapi"
	"github.com/dmitrijs2005/gophfiles/internal/server/metrics"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophfiles/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophfiles/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/gophfiles/internal/server/grpc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const healthProbeInterval = 15 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *cache.Redis
	files   *services.FileService
	reaper  *services.Reaper
	http    *httpapi.Server
	grpc    *gs.GRPCServer
	closers []func() error
}

func newLogger(c *config.Config) (logging.Logger, func() error, error) {
	if c.LogBackend == config.LogZap {
		l, err := logging.NewProductionZapLogger()
		if err != nil {
			return nil, nil, err
		}
		return l, l.Sync, nil
	}
	return logging.NewJSONSlogLogger(os.Stdout, slog.LevelInfo), nil, nil
}

// openStorage returns the index and the chunk backend for the configured
// storage. Memory mode keeps both in process and needs no database.
func (app *App) openStorage(ctx context.Context) (files.Repository, blobstore.Backend, error) {
	c := app.config
	switch c.StorageBackend {
	case config.StorageMemory:
		return files.NewMemoryRepository(), blobstore.NewMemoryBackend(), nil
	case config.StoragePostgres, config.StorageS3:
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	index := rm.Files(db)

	if c.StorageBackend == config.StorageS3 {
		client, err := blobstore.NewS3Client(ctx, blobstore.S3Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 init error: %w", err)
		}
		return index, blobstore.NewS3Backend(client, c.S3Bucket), nil
	}
	return index, blobstore.NewPostgresBackend(rm.Chunks(db)), nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, flush, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}
	if flush != nil {
		app.closers = append(app.closers, flush)
	}

	index, backend, err := app.openStorage(ctx)
	if err != nil {
		app.close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := blobstore.New(index, backend, c.ChunkSize, logger)
	logger.Info(ctx, "Storage ready", "storage", c.StorageBackend, "chunk_size", store.ChunkSize())

	opts := []services.Option{
		services.WithGate(access.NewGate(access.WithConcealment(c.ConcealPrivate))),
		services.WithMetrics(m),
	}
	if c.RedisAddr != "" {
		app.redis = cache.NewRedis(cache.RedisConfig{Addr: c.RedisAddr, TTL: c.CacheTTL}, logger)
		app.closers = append(app.closers, app.redis.Close)
		if err := app.redis.Ping(ctx); err != nil {
			logger.Warn(ctx, "redis unavailable, lookups go to the index", "addr", c.RedisAddr, "error", err)
		}
		opts = append(opts, services.WithCache(app.redis))
	}

	app.files = services.NewFileService(index, store, services.NewURLBuilder(c.PublicScheme, c.HostAliases), logger, opts...)
	app.reaper = services.NewReaper(index, app.files, services.ReaperConfig{
		Retention:  c.RetentionPeriod,
		StaleAfter: c.StaleUploadAfter,
		Interval:   c.SweepInterval,
	}, m, logger)

	secret := []byte(c.SecretKey)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Files:    app.files,
		Parse:    func(token string) (*models.Principal, error) { return auth.ParseToken(token, secret) },
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	app.http = httpapi.NewServer(c.EndpointAddrHTTP, router, logger)

	var pinger gs.Pinger
	if app.db != nil {
		pinger = app.db
	}
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, pinger, healthProbeInterval)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// serve runs fn and cancels the whole app when it fails.
func (app *App) serve(ctx context.Context, cancelFunc context.CancelFunc, name string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		app.logger.Error(ctx, name+" stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		_ = app.closers[i]()
	}
	app.closers = nil
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "HTTP server", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "gRPC server", app.grpc.Run)
	}()
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	app.close()
}
