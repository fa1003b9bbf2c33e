package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/SergeyBurlaka/muzei/internal/api"
	"github.com/SergeyBurlaka/muzei/internal/cmd"
	"github.com/SergeyBurlaka/muzei/internal/hmac"
	"github.com/SergeyBurlaka/muzei/internal/metrics"
	"github.com/SergeyBurlaka/muzei/internal/notify"
	muzeisync "github.com/SergeyBurlaka/muzei/internal/sync"
	"github.com/SergeyBurlaka/muzei/internal/tracing"

	"github.com/SergeyBurlaka/muzei/internal/database"
	memoryDatabase "github.com/SergeyBurlaka/muzei/internal/database/memory"
	"github.com/SergeyBurlaka/muzei/internal/database/postgresql"

	"github.com/SergeyBurlaka/muzei/internal/cache"
	memoryCache "github.com/SergeyBurlaka/muzei/internal/cache/memory"
	"github.com/SergeyBurlaka/muzei/internal/cache/redis"

	"github.com/SergeyBurlaka/muzei/internal/storage"
	fileStorage "github.com/SergeyBurlaka/muzei/internal/storage/file"
	"github.com/SergeyBurlaka/muzei/internal/storage/spaces"

	"github.com/SergeyBurlaka/muzei/internal/health"
	"github.com/SergeyBurlaka/muzei/internal/logger"
	"github.com/SergeyBurlaka/muzei/internal/provider/httpclient"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", ":8083", "metrics listen address")
	rootURL       = flag.String("root-url", "https://muzei.example.com", "root url")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
	enableTracing = flag.Bool("tracing", false, "send traces to an opentelemetry collector")

	// Rotation
	loadInterval = flag.Duration("load-interval", time.Hour, "how often to rotate to a new artwork, 0 disables scheduled rotation")

	// Database
	databaseBackend           = flag.String("database", "memory", "which database backend to use (memory, postgresql)")
	databaseWaitTimeout       = flag.Duration("database-wait-timeout", time.Second*30, "time to wait for a database connection to be established before giving up")
	databaseMigrationsAddress = flag.String("database-migrations-address", "file://migrations", "path to the database migrations")

	// Database - Postgresql
	databasePostgresqlAddress  = flag.String("database-postgresql-address", "postgresql://postgres@127.0.0.1/postgres", "postgresql address")
	databasePostgresqlMaxConns = flag.Int("database-postgresql-max-conns", 0, "postgresql max connections")

	// Cache
	cacheBackend = flag.String("cache", "memory", "which cache backend to use (memory, redis)")

	// Cache - Redis
	cacheRedisAddress  = flag.String("cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	cacheRedisPoolSize = flag.Int("cache-redis-pool-size", 10, "redis connection pool size")

	// Storage
	storageBackend = flag.String("storage", "file", "which storage backend to use (file, spaces)")

	// Storage - File
	storageFilePath = flag.String("storage-file-path", "./artwork", "path to the file storage")

	// Storage - Spaces
	storageSpacesSpace     = flag.String("storage-spaces-space", "", "digitalocean space to use")
	storageSpacesEndpoint  = flag.String("storage-spaces-endpoint", "", "spaces endpoint")
	storageSpacesAccessKey = flag.String("storage-spaces-access-key", "", "spaces access key")
	storageSpacesSecretKey = flag.String("storage-spaces-secret-key", "", "spaces secret key")

	// Providers
	providerTimeout = flag.Duration("provider-timeout", time.Second*30, "timeout for provider protocol calls")

	// HMAC
	hmacKey = flag.String("hmac-key", "", "hmac key to use for signing provider requests")
)

func main() {
	// Parse environment variables
	envy.Parse("MUZEI")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize tracing
	tracerCtx, tracerCancel := context.WithCancel(context.Background())
	defer tracerCancel()

	var tracer *tracing.Tracer
	if *enableTracing {
		var err error
		tracer, err = tracing.New(tracerCtx, log, "muzei")
		if err != nil {
			log.Fatalf("error initializing tracing: %s", err)
		}
	} else {
		tracer = tracing.NewNoop(log, "muzei")
	}
	defer tracer.Shutdown(context.Background())

	// Initialize the database, cache and storage
	db, cacheProvider, store, err := setupBackends(tracerCtx, tracer)
	if err != nil {
		log.Fatalf("error initializing backends: %s", err)
	}
	defer db.Shutdown()
	defer cacheProvider.Shutdown()

	log.Infof("waiting for the database")
	waitCtx, cancel := context.WithTimeout(context.Background(), *databaseWaitTimeout)
	err = db.Wait(waitCtx)
	if err != nil {
		log.Fatalf("error waiting for the database: %s", err)
	}

	cancel()

	log.Infof("migrating the database")
	err = db.Migrate(*databaseMigrationsAddress)
	if err != nil {
		log.Fatalf("error migrating the database: %s", err)
	}

	// Provider clients
	clients := httpclient.NewFactory(
		&http.Client{Timeout: *providerTimeout},
		&hmac.HMAC{Key: []byte(*hmacKey)},
	)

	// Event bus for change notifications
	bus := notify.NewBus()
	defer bus.Close()

	// Artwork loader and sync manager
	loader := &muzeisync.Loader{
		Store:    db,
		Clients:  clients,
		Storage:  store,
		Notifier: bus,
		Log:      log,
		Tracer:   tracer,
	}

	manager := muzeisync.New(loader, db, clients, cacheProvider, bus, log)
	defer manager.Shutdown()

	managerCtx, managerCancel := context.WithCancel(context.Background())
	defer managerCancel()
	go manager.Run(managerCtx, *loadInterval)

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:      checkerCtx,
		Database: db,
		Cache:    cacheProvider,
		Storage:  store,
		Clients:  clients,
		Log:      log,
	}
	go checker.Run()

	// Serve metrics and pprof on a separate listener
	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	defer metricsCancel()
	go metrics.Serve(metricsCtx, log, checker, *metricsListen)

	// Start and listen on http
	api := &api.API{
		Database:       db,
		Manager:        manager,
		Clients:        clients,
		Storage:        store,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		RootURL:        *rootURL,
		HandlerTimeout: cmd.HandlerTimeout,
	}
	server := &http.Server{
		Addr:         *listen,
		Handler:      api.Router(),
		ReadTimeout:  cmd.ReadTimeout,
		WriteTimeout: cmd.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(context.Background(), cmd.WriteTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}

	if dropped := bus.Dropped(); dropped > 0 {
		log.Warnw("events were dropped for slow subscribers",
			"dropped", dropped,
		)
	}
}

func setupBackends(ctx context.Context, tracer *tracing.Tracer) (db database.Store, cacheProvider cache.Provider, store storage.Provider, err error) {
	// Database
	switch *databaseBackend {
	case "memory":
		db = memoryDatabase.New()
	case "postgresql":
		db, err = postgresql.New(*databasePostgresqlAddress, *databasePostgresqlMaxConns)
	default:
		err = fmt.Errorf("invalid database backend")
	}

	if err != nil {
		return
	}

	// Cache
	switch *cacheBackend {
	case "memory":
		cacheProvider = memoryCache.New()
	case "redis":
		cacheProvider, err = redis.New(ctx, tracer, *cacheRedisAddress, *cacheRedisPoolSize)
	default:
		err = fmt.Errorf("invalid cache backend")
	}

	if err != nil {
		return
	}

	// Storage
	switch *storageBackend {
	case "file":
		store, err = fileStorage.New(*storageFilePath)
	case "spaces":
		store, err = spaces.New(*storageSpacesSpace, *storageSpacesEndpoint, *storageSpacesAccessKey, *storageSpacesSecretKey, false)
	default:
		err = fmt.Errorf("invalid storage backend")
	}

	return
}
