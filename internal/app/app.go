package app

import (
	"context"
	"fmt"

	"github.com/hnimtadd/craft-redis/internal/app/server"
	"github.com/hnimtadd/craft-redis/internal/redis"
	"github.com/hnimtadd/craft-redis/internal/redis/state/replication"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

type App struct {
	config   Config
	logger   *logrus.Logger
	registry *prometheus.Registry
}

func New(config Config) *App {
	logger := logrus.New()
	if config.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &App{
		config:   config,
		logger:   logger,
		registry: registry,
	}
}

func (a *App) initController() (*redis.Controller, error) {
	opts := redis.Options{
		RateLimit:  a.config.RateLimit,
		Logger:     a.logger,
		Registerer: a.registry,
	}
	replicaOf, err := a.config.Replica()
	if err != nil {
		return nil, err
	}
	if replicaOf != nil {
		// By default, a Redis server assumes the "master" role. When --replicaof
		// flag is passed, the server assumes the "slave" role instead.
		opts.Role = replication.RoleSlave
		opts.MasterHost = replicaOf.MasterHost
		opts.MasterPort = replicaOf.MasterPort
		opts.SlavePort = a.config.Port
	} else {
		opts.Role = replication.RoleMaster
		opts.MasterHost = "localhost"
		opts.MasterPort = a.config.Port
	}

	a.logger.Debug("init redis controller with config\n", opts)
	return redis.NewController(opts), nil
}

func (a *App) initServer(controller *redis.Controller) *server.Server {
	opts := server.Options{
		Port:           a.config.Port,
		MetricsAddress: a.config.Metrics.Address,
		Gatherer:       a.registry,
		Logger:         a.logger,
	}
	return server.NewServer(controller, opts)
}

// Run bootstraps replication when configured, then serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.logger.Debug("starting with config\n", a.config)
	controller, err := a.initController()
	if err != nil {
		return fmt.Errorf("failed to create redis controller: %w", err)
	}
	defer controller.Close()

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	srv := a.initServer(controller)
	a.logger.Info("Server initialized")
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("stopped listener: %w", err)
	}
	a.logger.Info("Server stopped")
	return nil
}
