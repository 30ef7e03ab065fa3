package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/cytograph/internal/cluster"
	"github.com/vk/cytograph/internal/ctxlog"
	"github.com/vk/cytograph/internal/dispatch"
	"github.com/vk/cytograph/internal/flowdata"
	"github.com/vk/cytograph/internal/graph"
)

// Run executes the main application logic based on the provided
// configuration: build the graph, print the traversal plan, and, when a
// data directory was given, dispatch it.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.logger.Debug("Building population graph from template...")
	g, err := graph.Build(ctx, a.rows)
	if err != nil {
		return fmt.Errorf("failed to build population graph: %w", err)
	}
	order, err := g.TopoSort()
	if err != nil {
		return fmt.Errorf("failed to order population graph: %w", err)
	}
	a.logger.Info("Population graph built.", "nodes", len(order), "edges", len(g.Edges()))

	fmt.Fprintln(a.outW, "Traversal plan:")
	for i, path := range order {
		if path == graph.RootPath {
			continue
		}
		edge := g.ParentEdge(path)
		fmt.Fprintf(a.outW, "  %2d. %s  [%s %s]\n", i, path, edge.Gating.Kind, edge.Gating.Name)
	}

	if cfg.DataPath == "" {
		a.logger.Info("No data directory provided, stopping after plan.")
		return nil
	}

	source, err := flowdata.LoadDir(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("failed to load sample data: %w", err)
	}
	a.logger.Info("Sample data loaded.", "samples", len(source.Samples()))

	opts, pool, err := a.dispatchOptions(ctx, cfg)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	a.logger.Info("Starting dispatch.", "strategy", cfg.Strategy)
	d := dispatch.New(g, a.registry, source, flowdata.NewMemoryStore())
	if err := d.Run(ctx, opts); err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	for _, path := range order {
		if path == graph.RootPath {
			continue
		}
		fmt.Fprintf(a.outW, "%s: %s\n", path, d.State(path))
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// dispatchOptions translates the configuration into dispatch options,
// dialing the cluster pool when that strategy was selected.
func (a *App) dispatchOptions(ctx context.Context, cfg *Config) (dispatch.Options, *cluster.Pool, error) {
	strategy, err := dispatch.ParseStrategy(cfg.Strategy)
	if err != nil {
		return dispatch.Options{}, nil, err
	}

	opts := dispatch.Options{Strategy: strategy, Workers: cfg.Workers}
	if strategy != dispatch.StrategyCluster {
		return opts, nil, nil
	}

	pool, err := cluster.Dial(ctx, cfg.ClusterWorkers, 30*time.Second)
	if err != nil {
		return dispatch.Options{}, nil, fmt.Errorf("failed to connect cluster workers: %w", err)
	}
	opts.Cluster = pool
	return opts, pool, nil
}
