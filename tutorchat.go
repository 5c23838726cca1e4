// Package tutorchat is the conversation engine for the tutoring
// platform: it keeps the chat transcript, the session list and the
// bound study material context in sync with the platform backend,
// surviving partial failures, duplicate navigation events and stale
// content references.
package tutorchat

import (
	"context"
	"fmt"
	"log"

	"github.com/tutorchat-dev/tutorchat/internal/api"
	iobs "github.com/tutorchat-dev/tutorchat/internal/observability"
	"github.com/tutorchat-dev/tutorchat/pkg/chat"
	"github.com/tutorchat-dev/tutorchat/pkg/config"
	"github.com/tutorchat-dev/tutorchat/pkg/content"
	"github.com/tutorchat-dev/tutorchat/pkg/observability"
	"github.com/tutorchat-dev/tutorchat/pkg/session"
)

// sessionRefreshSchedule is the default cron expression for the
// background session listing refresh.
const sessionRefreshSchedule = "@every 5m"

// Engine wires the whole conversation stack: API client, session
// store, content resolver, dispatcher and orchestrator.
type Engine struct {
	cfg *config.Config

	client    *api.Client
	store     *session.Store
	resolver  *content.Resolver
	orch      *Orchestrator
	refresher *session.Refresher
	obsServer *observability.Server
}

// New builds an engine from configuration. No network calls happen
// until Start.
func New(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := api.NewClient(cfg.Backend.URL,
		api.WithAuthToken(cfg.Backend.AuthToken),
		api.WithTimeout(cfg.Backend.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}

	var cache session.SummaryCache
	if cfg.Redis.Addr != "" {
		redisCache, err := session.NewRedisCache(session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			log.Printf("[Engine] redis cache unavailable, using in-memory cache: %v", err)
		} else {
			cache = redisCache
		}
	}

	store := session.NewStore(client, cache)
	resolver := content.NewResolver(client)
	dispatcher := chat.NewDispatcher(client, store, cfg.Chat.SendInterval)
	orch := NewOrchestrator(client, store, resolver, dispatcher, nil)

	e := &Engine{
		cfg:      cfg,
		client:   client,
		store:    store,
		resolver: resolver,
		orch:     orch,
	}

	schedule := cfg.RefreshSchedule
	if schedule == "" {
		schedule = sessionRefreshSchedule
	}
	refresher, err := session.NewRefresher(store, schedule)
	if err != nil {
		return nil, err
	}
	e.refresher = refresher

	return e, nil
}

// Start warms the engine: tracing, metrics, the module list and the
// initial session listing. Listing failures are degraded, not fatal.
func (e *Engine) Start(ctx context.Context) error {
	if err := iobs.Init(iobs.Config{
		ExporterType: e.cfg.Observability.TraceExporter,
		OTLPEndpoint: e.cfg.Observability.TraceEndpoint,
	}); err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}

	if e.cfg.Observability.EnableMetrics {
		observability.InitMetrics()
		hc := observability.InitHealthChecker()
		hc.RegisterCheck(observability.PingCheck())
		hc.RegisterCheck(observability.BackendCheck(func(ctx context.Context) error {
			_, err := e.client.ListModules(ctx)
			return err
		}))

		e.obsServer = observability.NewServer(e.cfg.Observability.MetricsPort)
		go func() {
			if err := e.obsServer.Start(); err != nil {
				log.Printf("[Engine] observability server stopped: %v", err)
			}
		}()
	}

	modules, err := e.client.ListModules(ctx)
	if err != nil {
		log.Printf("[Engine] module listing failed, labels degrade to raw references: %v", err)
	} else {
		e.orch.SetModules(modules)
	}

	if _, err := e.store.List(ctx); err != nil {
		log.Printf("[Engine] initial session listing failed: %v", err)
	}

	e.refresher.Start()
	return nil
}

// Orchestrator exposes the conversation commands.
func (e *Engine) Orchestrator() *Orchestrator { return e.orch }

// Sessions exposes the session store.
func (e *Engine) Sessions() *session.Store { return e.store }

// Shutdown stops background work and flushes telemetry.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.refresher.Stop()

	if e.obsServer != nil {
		if err := e.obsServer.Shutdown(ctx); err != nil {
			log.Printf("[Engine] observability server shutdown: %v", err)
		}
	}
	if err := iobs.Shutdown(ctx); err != nil {
		log.Printf("[Engine] tracing shutdown: %v", err)
	}
	return e.store.Close()
}
