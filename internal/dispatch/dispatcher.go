// Package dispatch walks the population DAG in topological order,
// deciding skip-vs-run per node, partitioning data per edge, invoking
// the registered method under the chosen execution strategy, and
// reassembling per-group results into per-sample or per-group shape.
package dispatch

import (
	"context"
	"fmt"

	"github.com/vk/cytograph/internal/cluster"
	"github.com/vk/cytograph/internal/ctxlog"
	"github.com/vk/cytograph/internal/flowdata"
	"github.com/vk/cytograph/internal/gateargs"
	"github.com/vk/cytograph/internal/graph"
	"github.com/vk/cytograph/internal/partition"
	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// State is a node's dispatch outcome.
type State int

const (
	// StatePending means the node has not been visited yet.
	StatePending State = iota
	// StateSkipped means every alias was already materialized.
	StateSkipped
	// StateComputed means the node's method ran and results were stored.
	StateComputed
	// StateFailed means the node aborted the traversal.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSkipped:
		return "skipped"
	case StateComputed:
		return "computed"
	case StateFailed:
		return "failed"
	}
	return "pending"
}

// Options is the dispatch invocation surface.
type Options struct {
	// Strategy selects per-group execution: none, multicore or cluster.
	Strategy Strategy
	// Workers bounds the multicore pool. Values below 1 run as 1.
	Workers int
	// Cluster is the remote worker pool, required for StrategyCluster.
	Cluster *cluster.Pool
	// Overrides are caller-supplied arguments that win over the
	// descriptor's stored arguments of the same name.
	Overrides map[string]cty.Value
}

// Dispatcher executes a built graph against a data source. The graph is
// treated as read-only; per-run node states are kept on the dispatcher.
type Dispatcher struct {
	graph  *graph.Graph
	reg    *registry.Registry
	source flowdata.Source
	store  flowdata.Store
	states map[string]State
}

// New creates a Dispatcher over a built graph.
func New(g *graph.Graph, reg *registry.Registry, source flowdata.Source, store flowdata.Store) *Dispatcher {
	return &Dispatcher{graph: g, reg: reg, source: source, store: store}
}

// State returns the node's outcome from the most recent Run.
func (d *Dispatcher) State(path string) State { return d.states[path] }

// Run performs a single topological pass over the graph. The first node
// failure aborts the traversal; there is no partial continuation.
func (d *Dispatcher) Run(ctx context.Context, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	if opts.Strategy == StrategyCluster && opts.Cluster == nil {
		return &ConfigurationError{Msg: "cluster strategy requires a worker pool"}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	order, err := d.graph.TopoSort()
	if err != nil {
		return fmt.Errorf("ordering graph traversal: %w", err)
	}

	d.states = make(map[string]State, len(order))
	for _, path := range order {
		d.states[path] = StatePending
	}

	logger.Info("Starting dispatch.", "nodes", len(order)-1, "strategy", opts.Strategy.String())
	for _, path := range order {
		if path == graph.RootPath {
			continue
		}
		node := d.graph.Node(path)
		edge := d.graph.ParentEdge(path)

		if d.materialized(edge.Parent, node) {
			logger.Info("Population already materialized, skipping.", "path", path)
			d.states[path] = StateSkipped
			continue
		}

		if err := d.runNode(ctx, node, edge, opts); err != nil {
			d.states[path] = StateFailed
			return err
		}
		d.states[path] = StateComputed
		logger.Debug("Population computed.", "path", path)
	}
	logger.Info("Dispatch finished.")
	return nil
}

// materialized reports whether the store already holds a result for
// every alias of the node under its parent.
func (d *Dispatcher) materialized(parent string, node *graph.Node) bool {
	if d.store == nil {
		return false
	}
	for _, alias := range node.Aliases {
		if !d.store.Exists(parent, alias) {
			return false
		}
	}
	return true
}

// runNode executes one node: registry lookup, partitioning, optional
// preprocessing, strategy execution, reshaping, and result storage.
func (d *Dispatcher) runNode(ctx context.Context, node *graph.Node, edge *graph.Edge, opts Options) error {
	desc := edge.Gating

	method, ok := d.reg.Gating(desc.Name)
	if !ok {
		return &RegistrationError{Method: desc.Name}
	}
	var prepMethod registry.Method
	if edge.Preprocessing != nil {
		if prepMethod, ok = d.reg.Preprocessing(edge.Preprocessing.Name); !ok {
			return &RegistrationError{Method: edge.Preprocessing.Name}
		}
	}

	col := d.source.Samples()
	groups, err := partition.Split(col, desc.GroupBy, desc.Collapse)
	if err != nil {
		return fmt.Errorf("partitioning data for %s: %w", node.Path, err)
	}
	dims, err := d.source.ResolveChannels(desc.Dims)
	if err != nil {
		return fmt.Errorf("resolving dimensions for %s: %w", node.Path, err)
	}

	var prepResults []cty.Value
	if prepMethod != nil {
		prepCalls := buildCalls(groups, dims, d.source, edge.Preprocessing, edge.Preprocessing.Args.Map(), nil)
		if prepResults, err = runGroups(ctx, opts, node.Path, prepMethod, prepCalls); err != nil {
			return err
		}
	}

	args := gateargs.Merge(desc.Args, opts.Overrides)
	calls := buildCalls(groups, dims, d.source, desc, args, prepResults)
	results, err := runGroups(ctx, opts, node.Path, method, calls)
	if err != nil {
		return err
	}

	res := reshape(col, groups, results, desc.Collapse)
	if d.store != nil {
		for _, alias := range node.Aliases {
			d.store.Put(edge.Parent, alias, res)
		}
	}
	return nil
}

// buildCalls assembles one Call per group. Each call gets its own copy
// of the args map, so a method mutating call.Args cannot leak into
// other groups running concurrently.
func buildCalls(groups []partition.Group, dims []string, source flowdata.Source, desc *graph.MethodDescriptor, args map[string]cty.Value, prep []cty.Value) []*registry.Call {
	calls := make([]*registry.Call, len(groups))
	for i, g := range groups {
		callArgs := make(map[string]cty.Value, len(args))
		for name, val := range args {
			callArgs[name] = val
		}
		call := &registry.Call{
			Group:        g,
			Dims:         dims,
			Source:       source,
			Descriptor:   desc,
			GroupBy:      desc.GroupBy,
			Collapse:     desc.Collapse,
			Args:         callArgs,
			Preprocessed: cty.NilVal,
		}
		if prep != nil {
			call.Preprocessed = prep[i]
		}
		calls[i] = call
	}
	return calls
}

// reshape maps per-group results back onto the collection. With collapse
// the result stays keyed by group; without it every sample inherits its
// group's result, in the parent collection's original order.
func reshape(col flowdata.Collection, groups []partition.Group, results []cty.Value, collapse bool) flowdata.Result {
	if collapse {
		keys := make([]string, len(groups))
		for i, g := range groups {
			keys[i] = g.Key
		}
		return flowdata.Result{Collapsed: true, Keys: keys, Values: results}
	}

	bySample := make(map[string]cty.Value, len(col))
	for i, g := range groups {
		for _, s := range g.Samples {
			bySample[s.ID] = results[i]
		}
	}

	keys := col.IDs()
	values := make([]cty.Value, len(keys))
	for i, id := range keys {
		values[i] = bySample[id]
	}
	return flowdata.Result{Keys: keys, Values: values}
}
