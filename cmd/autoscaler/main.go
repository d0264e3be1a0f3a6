package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/forgeci/runner-autoscaler/api"
	"github.com/forgeci/runner-autoscaler/internal/collector"
	"github.com/forgeci/runner-autoscaler/internal/decision"
	"github.com/forgeci/runner-autoscaler/internal/digitalocean"
	"github.com/forgeci/runner-autoscaler/internal/events"
	"github.com/forgeci/runner-autoscaler/internal/github"
	"github.com/forgeci/runner-autoscaler/internal/logger"
	"github.com/forgeci/runner-autoscaler/internal/metrics"
	"github.com/forgeci/runner-autoscaler/internal/reaper"
	"github.com/forgeci/runner-autoscaler/internal/resilience"
	"github.com/forgeci/runner-autoscaler/internal/scaler"
	"github.com/forgeci/runner-autoscaler/internal/scheduler"
	"github.com/forgeci/runner-autoscaler/pkg/config"
	"github.com/forgeci/runner-autoscaler/pkg/database"
	"github.com/forgeci/runner-autoscaler/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(database.Config{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			Name:           cfg.Database.Name,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			SSLMode:        cfg.Database.SSLMode,
			MaxConnections: cfg.Database.MaxConnections,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		if db == nil {
			return fmt.Errorf("migrations require database.enabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		if err := database.NewMigrator(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	// Provider clients
	ghClient := github.NewClient(github.Config{
		Token:   cfg.GitHub.Token,
		Org:     cfg.GitHub.Org,
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repo,
		BaseURL: cfg.GitHub.BaseURL,
		Timeout: cfg.Collector.Timeout,
	})
	doClient := digitalocean.NewClient(digitalocean.Config{
		Token:      cfg.DigitalOcean.Token,
		AppID:      cfg.DigitalOcean.AppID,
		WorkerName: cfg.DigitalOcean.WorkerName,
		BaseURL:    cfg.DigitalOcean.BaseURL,
		Timeout:    cfg.Collector.Timeout,
	})

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Collector with retries and circuit breaker
	snapCollector := collector.NewSnapshotCollector(
		ghClient, doClient,
		cfg.GitHub.RunnerLabel, cfg.GitHub.RunnerNamePrefix,
	)
	resilient := collector.NewResilientCollector(collector.ResilientCollectorConfig{
		Collector:     snapCollector,
		MaxFailures:   cfg.Collector.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Collector.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Collector.RetryAttempts,
		RetryDelay:    cfg.Collector.RetryDelay,
		OnStateChange: func(name string, from, to resilience.State) {
			m.BreakerState.Set(float64(to))
			logger.Warnf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// Decision engine
	policy, err := decision.NewPolicy(cfg.Autoscaler.Policy)
	if err != nil {
		return fmt.Errorf("failed to build policy: %w", err)
	}
	engine := decision.NewEngine(decision.Config{
		MinInstances:       cfg.Autoscaler.MinInstances,
		MaxInstances:       cfg.Autoscaler.MaxInstances,
		RunnersPerInstance: cfg.Autoscaler.RunnersPerInstance,
		ScaleUpCooldown:    cfg.Autoscaler.ScaleUpCooldown,
		ScaleDownCooldown:  cfg.Autoscaler.ScaleDownCooldown,
		ScaleUpStep:        cfg.Autoscaler.ScaleUpStep,
		ScaleUpProportion:  cfg.Autoscaler.ScaleUpProportion,
	}, policy)
	store := decision.NewStore()

	// Events
	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	var eventStore events.ScalingEventStore
	if db != nil {
		eventStore = queries.NewScalingEventRepository(db.DB)
	}
	eventLogger := events.NewEventLogger(eventStore, bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	// Control loop
	sched := scheduler.New(scheduler.Config{
		PollInterval: cfg.Autoscaler.PollInterval,
		Collector:    resilient,
		Engine:       engine,
		Store:        store,
		Applicator:   scaler.NewApplicator(doClient),
		Reaper:       reaper.New(ghClient, cfg.GitHub.RunnerNamePrefix),
		Publisher:    publisher,
		Metrics:      m,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, api.Deps{
			DB:          db,
			Status:      sched,
			TokenIssuer: ghClient,
			Events:      bus.SubscribeAll(),
			Registry:    registry,
			Mode:        cfg.App.Mode,
		})

		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	sched.Stop()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("Stopped gracefully")
	return nil
}
