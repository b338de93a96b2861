package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/hbromell/grab/internal/api"
	"github.com/hbromell/grab/internal/database"
	"github.com/hbromell/grab/internal/extractor"
	"github.com/hbromell/grab/pkg/logger"
	"github.com/hbromell/grab/pkg/worker"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	DatabaseManager interface {
		Connect(database.Config) error
		Close() error
	}
)

// Grab represents the top-level object for the server, and is responsible
// for constructing the worker pool, the extractor service, the REST
// gateway, and the (inert) database handle, and for tying their lifecycles
// to a single cancellable context.
type grabImpl struct {
	config      GrabConfig
	pool        *worker.Pool
	extractor   *extractor.Service
	restGateway *api.RestGateway
	db          DatabaseManager
}

func New(config GrabConfig) *grabImpl {
	log.Emit(logger.DEBUG, "Bootstrapping Grab services using config: %#v\n", config)

	poolSize := config.Extractor.PoolSize
	if poolSize <= 0 {
		poolSize = 3
	}

	pool := worker.NewPool("extractor", poolSize)
	extractorService := extractor.New(config.Extractor, pool, extractor.NewCommandClient(config.Extractor.BinaryPath))

	return &grabImpl{
		config:      config,
		pool:        pool,
		extractor:   extractorService,
		restGateway: api.NewRestGateway(&config.RestConfig, extractorService),
		db:          database.New(),
	}
}

// Run brings up all required services and connections: the worker pool,
// the database handle (when enabled), and the REST gateway.
//
// This function will not return until Grab is stopped. To stop Grab, the
// provided context must be cancelled. Errors from which Grab cannot
// recover will also cause it to stop.
func (grab *grabImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	// The database carries no request data; it is connected and closed here
	// purely as lifecycle-managed infrastructure.
	if grab.config.Database.Enable {
		log.Emit(logger.NEW, "Connecting to database...\n")
		if err := grab.db.Connect(grab.config.Database); err != nil {
			return err
		}
		defer grab.db.Close()
	}

	log.Emit(logger.NEW, "Starting extractor worker pool...\n")
	if err := grab.pool.Start(); err != nil {
		return err
	}
	defer grab.pool.Close()

	wg := &sync.WaitGroup{}
	grab.spawnAsyncService(ctx, wg, grab.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Grab services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as its own
// go-routine, ensuring that the service waitgroup is updated correctly.
func (grab *grabImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
