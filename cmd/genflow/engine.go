package main

import (
	"fmt"

	"github.com/zimalabs/genflow/internal/api"
	"github.com/zimalabs/genflow/internal/cache"
	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/internal/jobs"
	"github.com/zimalabs/genflow/internal/orchestrator"
	"github.com/zimalabs/genflow/internal/pricing"
	"github.com/zimalabs/genflow/internal/renderer"
	"github.com/zimalabs/genflow/internal/warmpool"
	"github.com/zimalabs/genflow/internal/workspace"
)

// engine bundles the wired subsystems for a command's lifetime.
type engine struct {
	cfg       *config.Config
	orch      *orchestrator.Orchestrator
	registry  *jobs.Registry
	workspace *workspace.Workspace
	cache     *cache.Cache
	pool      *warmpool.Pool
}

// buildEngine loads configuration and wires every subsystem together.
func buildEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	prices := pricing.NewTable()
	if cfg.Pricing.OverridePath != "" {
		if err := prices.LoadOverrides(cfg.Pricing.OverridePath); err != nil {
			return nil, fmt.Errorf("loading pricing overrides: %w", err)
		}
	}

	factory, err := renderer.NewFactory(cfg.Renderer, prices)
	if err != nil {
		return nil, err
	}

	if cfg.Renderer.Backend == "" || cfg.Renderer.Backend == "subprocess" {
		if err := CheckRendererCLI(cfg.Renderer.Binary); err != nil {
			return nil, err
		}
	}

	ws, err := workspace.New(cfg.Output.Root)
	if err != nil {
		return nil, err
	}

	respCache := cache.New(cfg.Cache.TTL, cfg.Cache.Capacity, cfg.Cache.SweepInterval)
	pool := warmpool.New(factory, cfg.WarmPool.WarmWindow, cfg.WarmPool.StaleAfter)
	orch := orchestrator.New(cfg, respCache, pool, ws, factory)
	registry := jobs.New(orch)

	return &engine{
		cfg:       cfg,
		orch:      orch,
		registry:  registry,
		workspace: ws,
		cache:     respCache,
		pool:      pool,
	}, nil
}

// server builds the HTTP surface over the engine.
func (e *engine) server() *api.Server {
	return api.NewServer(e.orch, e.registry, e.workspace)
}

// shutdown stops the background loops.
func (e *engine) shutdown() {
	e.registry.Stop()
	e.cache.Stop()
	e.pool.Stop()
}
