package dispatch

import (
	"context"
	"fmt"

	"github.com/vk/cytograph/internal/cluster"
	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Strategy selects how a node's per-group method calls execute. Groups
// are independent, so everything beyond StrategyNone parallelizes across
// them; graph traversal itself stays strictly sequential.
type Strategy int

const (
	// StrategyNone runs groups sequentially in partition order.
	StrategyNone Strategy = iota
	// StrategyMulticore runs groups on a bounded local worker pool.
	StrategyMulticore
	// StrategyCluster distributes groups over remote socket.io workers.
	StrategyCluster
)

// ParseStrategy maps the invocation-surface selector to a Strategy. An
// empty string means sequential.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "none":
		return StrategyNone, nil
	case "multicore":
		return StrategyMulticore, nil
	case "cluster":
		return StrategyCluster, nil
	}
	return StrategyNone, fmt.Errorf("unknown execution strategy %q", s)
}

// String returns the selector name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyMulticore:
		return "multicore"
	case StrategyCluster:
		return "cluster"
	}
	return "none"
}

// runGroups executes one method over every group call under the chosen
// strategy. Results always come back in call order; the first failure
// aborts the remaining groups.
func runGroups(ctx context.Context, opts Options, node string, m registry.Method, calls []*registry.Call) ([]cty.Value, error) {
	switch opts.Strategy {
	case StrategyMulticore:
		return runMulticore(ctx, opts.Workers, node, m, calls)
	case StrategyCluster:
		return runCluster(ctx, opts.Cluster, node, calls)
	default:
		return runSequential(ctx, node, m, calls)
	}
}

func runSequential(ctx context.Context, node string, m registry.Method, calls []*registry.Call) ([]cty.Value, error) {
	results := make([]cty.Value, len(calls))
	for i, call := range calls {
		res, err := m(ctx, call)
		if err != nil {
			return nil, &ExecutionError{Node: node, Group: call.Group.Key, Err: err}
		}
		results[i] = res
	}
	return results, nil
}

// runMulticore maps calls onto a bounded goroutine pool. The indexed
// result slice preserves partition order regardless of completion order.
func runMulticore(ctx context.Context, workers int, node string, m registry.Method, calls []*registry.Call) ([]cty.Value, error) {
	results := make([]cty.Value, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, call := range calls {
		g.Go(func() error {
			res, err := m(gctx, call)
			if err != nil {
				return &ExecutionError{Node: node, Group: call.Group.Key, Err: err}
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runCluster ships each group to a remote worker. The registry lookup
// already happened; remote workers resolve the method by name on their
// side.
func runCluster(ctx context.Context, pool *cluster.Pool, node string, calls []*registry.Call) ([]cty.Value, error) {
	jobs := make([]cluster.Job, len(calls))
	for i, call := range calls {
		args, err := cluster.ArgsToInterface(call.Args)
		if err != nil {
			return nil, &ExecutionError{Node: node, Group: call.Group.Key, Err: err}
		}
		jobs[i] = cluster.Job{
			Method:   call.Descriptor.Name,
			Node:     node,
			Group:    call.Group.Key,
			Samples:  call.Group.Samples.IDs(),
			Dims:     call.Dims,
			Args:     args,
			GroupBy:  call.GroupBy,
			Collapse: call.Collapse,
		}
	}

	results, err := pool.Execute(ctx, jobs)
	if err != nil {
		return nil, &ExecutionError{Node: node, Err: err}
	}
	return results, nil
}
