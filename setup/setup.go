package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CodeDeck/codedeck_backend/catalog"
	"github.com/CodeDeck/codedeck_backend/db"
	"github.com/CodeDeck/codedeck_backend/endpoints"
	"github.com/CodeDeck/codedeck_backend/endpoints/health"
	"github.com/CodeDeck/codedeck_backend/endpoints/metrics"
	"github.com/CodeDeck/codedeck_backend/judge"
	"github.com/CodeDeck/codedeck_backend/log"
	"github.com/CodeDeck/codedeck_backend/rabbit"
	"github.com/CodeDeck/codedeck_backend/results"
	"github.com/CodeDeck/codedeck_backend/submission"
	"golang.org/x/sync/errgroup"
)

type AppResources struct {
	Ctx          context.Context
	Cancel       context.CancelFunc
	Config       Config
	Catalog      *catalog.Catalog
	Judge        *judge.Client
	Results      *results.Cache
	Metrics      *metrics.InMemoryMetricsCollector
	Health       *health.HealthServiceRegister
	Orchestrator *submission.Orchestrator
	Server       *endpoints.HTTPServer
	DB           *db.PostgresRepository
	Publisher    *rabbit.Publisher
}

// SetupApp wires every component of the backend from cfg. A problem file that
// cannot be read leaves the catalog empty; the server still starts.
func SetupApp(cfg Config) (*AppResources, error) {
	ctx, cancel := context.WithCancel(context.Background())
	handleSignals(cancel)

	res := &AppResources{
		Ctx:     ctx,
		Cancel:  cancel,
		Config:  cfg,
		Catalog: catalog.New(),
		Metrics: metrics.NewInMemoryMetricsCollector(),
		Health:  health.NewHealthServiceRegister(),
		Results: results.NewCache(cfg.ResultCacheTTL.Std(), cfg.ResultCacheTTL.Std()/2),
	}

	if _, err := res.Catalog.LoadFile(cfg.ProblemsFile); err != nil {
		log.Logger.WithError(err).Errorf("FATAL: could not load problems from %s, serving an empty catalog", cfg.ProblemsFile)
	}

	res.Judge = judge.NewClient(judge.Config{
		BaseURL:      cfg.Judge.URL,
		APIKey:       cfg.Judge.APIKey,
		RapidAPIHost: cfg.Judge.RapidAPIHost,
		AuthToken:    cfg.Judge.AuthToken,
		Timeout:      cfg.Judge.Timeout.Std(),
	}, judge.WithObserver(res.Metrics))

	res.Health.Register(res.Catalog, res.Judge)
	manager := endpoints.NewManager().Register(res.Metrics, res.Catalog, res.Results)

	opts := []submission.Option{
		submission.WithMetrics(res.Metrics),
		submission.WithResultSink(res.Results),
		submission.WithMaxParallel(cfg.MaxParallel),
	}

	if cfg.DBURL != "" {
		repo, err := db.NewPostgresRepository(ctx, cfg.DBURL)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		runs := db.NewRunRepository(repo)
		if err := runs.EnsureSchema(ctx); err != nil {
			repo.Close()
			cancel()
			return nil, fmt.Errorf("failed to prepare judge run table: %w", err)
		}
		res.DB = repo
		res.Health.Register(repo)
		opts = append(opts, submission.WithRunStore(runs))
		log.Logger.Info("Recording judge runs in Postgres")
	}

	if cfg.MQURL != "" {
		res.Publisher = rabbit.NewPublisher(cfg.MQURL, cfg.EventBuffer)
		res.Health.Register(res.Publisher)
		manager.Register(res.Publisher)
		opts = append(opts, submission.WithEventSink(res.Publisher))
		log.Logger.Info("Publishing submission events to RabbitMQ")
	}

	res.Orchestrator = submission.New(res.Catalog, res.Judge, opts...)
	res.Server = endpoints.NewHTTPServer(cfg.HTTPAddr, endpoints.Services{
		Catalog:   res.Catalog,
		Submitter: res.Orchestrator,
		Judge:     res.Judge,
		Results:   res.Results,
		DebugInfo: res.Judge.Describe,
	}, manager, res.Health, cfg.CORSOrigins)

	return res, nil
}

// Run starts the background loops and serves the API until the context is
// canceled.
func (r *AppResources) Run() error {
	g, ctx := errgroup.WithContext(r.Ctx)
	g.Go(func() error {
		r.Results.StartGC(ctx)
		return nil
	})
	if r.Publisher != nil {
		g.Go(func() error {
			if err := r.Publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event publisher stopped: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer r.Cancel()
		return r.Server.Run(ctx)
	})
	return g.Wait()
}

func (r *AppResources) Close() {
	if r.DB != nil {
		r.DB.Close()
	}
	r.Cancel()
}

// handleSignals cancels the application context on SIGINT or SIGTERM.
func handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Logger.Infof("Received signal %v. Initiating graceful shutdown...", sig)
		cancel()
	}()
}
