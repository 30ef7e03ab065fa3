package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cytograph/internal/flowdata"
	"github.com/vk/cytograph/internal/graph"
	"github.com/vk/cytograph/internal/registry"
	"github.com/vk/cytograph/internal/template"
	"github.com/zclconf/go-cty/cty"
)

func testSource(n int) *flowdata.MemorySource {
	channels := []flowdata.Channel{
		{Name: "FSC-A"},
		{Name: "FL1-H", Marker: "CD3"},
		{Name: "FL2-H", Marker: "CD4"},
	}
	col := make(flowdata.Collection, n)
	for i := range col {
		col[i] = &flowdata.Sample{
			ID:        "s" + strconv.Itoa(i+1),
			Frame:     &flowdata.Frame{Channels: []string{"FSC-A", "FL1-H", "FL2-H"}},
			Phenotype: map[string]string{"Tissue": "blood"},
		}
	}
	return flowdata.NewMemorySource(channels, col)
}

func buildGraph(t *testing.T, rows []template.Row) *graph.Graph {
	t.Helper()
	vrs, err := template.Validate(rows)
	require.NoError(t, err)
	g, err := graph.Build(context.Background(), vrs)
	require.NoError(t, err)
	return g
}

// recorder is a test method that records each call's group key and
// returns it as the result.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) method(_ context.Context, call *registry.Call) (cty.Value, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call.Group.Key)
	r.mu.Unlock()
	return cty.StringVal(call.Group.Key), nil
}

func TestRun_PerSamplePartitionAndFlatten(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "myThreshold"},
	})

	reg := registry.New()
	rec := &recorder{}
	reg.RegisterGating("myThreshold", rec.method)

	store := flowdata.NewMemoryStore()
	d := New(g, reg, testSource(3), store)
	require.NoError(t, d.Run(context.Background(), Options{}))

	// No group-by, collapse=false: one group per sample, in order.
	assert.Equal(t, []string{"s1", "s2", "s3"}, rec.calls)
	assert.Equal(t, StateComputed, d.State("/cd3"))

	res, ok := store.Get("root", "cd3")
	require.True(t, ok)
	assert.False(t, res.Collapsed)
	assert.Equal(t, []string{"s1", "s2", "s3"}, res.Keys)
}

func TestRun_UnregisteredMethodFailsWithoutSideEffects(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "nope"},
	})

	store := flowdata.NewMemoryStore()
	d := New(g, registry.New(), testSource(2), store)
	err := d.Run(context.Background(), Options{})

	var rerr *RegistrationError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "nope", rerr.Method)
	assert.Equal(t, StateFailed, d.State("/cd3"))
	assert.False(t, store.Exists("root", "cd3"))
}

func TestRun_SkipsMaterializedNode(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "myThreshold"},
	})

	reg := registry.New()
	rec := &recorder{}
	reg.RegisterGating("myThreshold", rec.method)

	store := flowdata.NewMemoryStore()
	store.Put("root", "cd3", flowdata.Result{})

	d := New(g, reg, testSource(2), store)
	require.NoError(t, d.Run(context.Background(), Options{}))
	assert.Equal(t, StateSkipped, d.State("/cd3"))
	assert.Empty(t, rec.calls)
}

func TestRun_CollapsedGroupByKeepsGroupKeys(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "myThreshold", GroupBy: "2", Collapse: "TRUE"},
	})

	reg := registry.New()
	rec := &recorder{}
	reg.RegisterGating("myThreshold", rec.method)

	store := flowdata.NewMemoryStore()
	d := New(g, reg, testSource(5), store)
	require.NoError(t, d.Run(context.Background(), Options{}))

	res, ok := store.Get("root", "cd3")
	require.True(t, ok)
	assert.True(t, res.Collapsed)
	assert.Equal(t, []string{"1", "2", "3"}, res.Keys)
}

func TestRun_FlattenInheritsGroupResultPerSample(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "myThreshold", GroupBy: "2"},
	})

	reg := registry.New()
	rec := &recorder{}
	reg.RegisterGating("myThreshold", rec.method)

	store := flowdata.NewMemoryStore()
	d := New(g, reg, testSource(5), store)
	require.NoError(t, d.Run(context.Background(), Options{}))

	res, ok := store.Get("root", "cd3")
	require.True(t, ok)
	require.Equal(t, []string{"s1", "s2", "s3", "s4", "s5"}, res.Keys)
	// Samples inherit their chunk's result: chunks are {s1,s2},{s3,s4},{s5}.
	want := []string{"1", "1", "2", "2", "3"}
	for i, v := range res.Values {
		assert.True(t, v.RawEquals(cty.StringVal(want[i])), "sample %d", i)
	}
}

func TestRun_MulticorePreservesPartitionOrder(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "myThreshold"},
	})

	reg := registry.New()
	rec := &recorder{}
	reg.RegisterGating("myThreshold", rec.method)

	store := flowdata.NewMemoryStore()
	d := New(g, reg, testSource(8), store)
	require.NoError(t, d.Run(context.Background(), Options{Strategy: StrategyMulticore, Workers: 4}))

	res, ok := store.Get("root", "cd3")
	require.True(t, ok)
	// Result order matches partition order even with concurrent groups.
	for i, v := range res.Values {
		assert.True(t, v.RawEquals(cty.StringVal(res.Keys[i])), "index %d", i)
	}
}

func TestRun_ClusterWithoutPoolFailsBeforeAnyWork(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "myThreshold"},
	})

	reg := registry.New()
	rec := &recorder{}
	reg.RegisterGating("myThreshold", rec.method)

	d := New(g, reg, testSource(2), flowdata.NewMemoryStore())
	err := d.Run(context.Background(), Options{Strategy: StrategyCluster})

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Empty(t, rec.calls)
}

func TestRun_MethodFailureAbortsTraversal(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "bad"},
		{Alias: "cd4", Parent: "cd3", Dims: "CD4", Method: "good"},
	})

	reg := registry.New()
	reg.RegisterGating("bad", func(context.Context, *registry.Call) (cty.Value, error) {
		return cty.NilVal, fmt.Errorf("boom")
	})
	rec := &recorder{}
	reg.RegisterGating("good", rec.method)

	d := New(g, reg, testSource(2), flowdata.NewMemoryStore())
	err := d.Run(context.Background(), Options{})

	var xerr *ExecutionError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "/cd3", xerr.Node)
	assert.Equal(t, StateFailed, d.State("/cd3"))
	assert.Equal(t, StatePending, d.State("/cd3/cd4"))
	assert.Empty(t, rec.calls, "downstream node must not run")
}

func TestRun_OverridesReachTheCall(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "capture", Args: "K=3, tol=0.1"},
	})

	var got map[string]cty.Value
	reg := registry.New()
	reg.RegisterGating("capture", func(_ context.Context, call *registry.Call) (cty.Value, error) {
		got = call.Args
		return cty.True, nil
	})

	d := New(g, reg, testSource(1), flowdata.NewMemoryStore())
	overrides := map[string]cty.Value{"K": cty.NumberIntVal(7)}
	require.NoError(t, d.Run(context.Background(), Options{Overrides: overrides}))

	require.NotNil(t, got)
	assert.True(t, got["K"].RawEquals(cty.NumberIntVal(7)))
	_, hasTol := got["tol"]
	assert.True(t, hasTol)
}

func TestRun_ArgsIsolatedPerGroup(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "mutate", Args: "K=3"},
	})

	// A method that rewrites its own args must not affect other groups.
	var mu sync.Mutex
	var seen []cty.Value
	reg := registry.New()
	reg.RegisterGating("mutate", func(_ context.Context, call *registry.Call) (cty.Value, error) {
		mu.Lock()
		seen = append(seen, call.Args["K"])
		mu.Unlock()
		call.Args["K"] = cty.NumberIntVal(0)
		return cty.True, nil
	})

	d := New(g, reg, testSource(4), flowdata.NewMemoryStore())
	require.NoError(t, d.Run(context.Background(), Options{Strategy: StrategyMulticore, Workers: 4}))

	require.Len(t, seen, 4)
	for i, v := range seen {
		assert.True(t, v.RawEquals(cty.NumberIntVal(3)), "group %d", i)
	}
}

func TestRun_PreprocessingFeedsGatingCall(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "gate", PrepMethod: "prep"},
	})

	reg := registry.New()
	reg.RegisterPreprocessing("prep", func(_ context.Context, call *registry.Call) (cty.Value, error) {
		return cty.StringVal("prep:" + call.Group.Key), nil
	})
	var seen []string
	var mu sync.Mutex
	reg.RegisterGating("gate", func(_ context.Context, call *registry.Call) (cty.Value, error) {
		mu.Lock()
		seen = append(seen, call.Preprocessed.AsString())
		mu.Unlock()
		return cty.True, nil
	})

	d := New(g, reg, testSource(2), flowdata.NewMemoryStore())
	require.NoError(t, d.Run(context.Background(), Options{}))
	assert.Equal(t, []string{"prep:s1", "prep:s2"}, seen)
}

func TestRun_ReferenceNodeRunsAfterReferences(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, []template.Row{
		{Alias: "AB", Parent: "root", Dims: "CD3,CD4", Method: "boolGate", Args: "cd3&cd4"},
		{Alias: "cd3", Parent: "root", Dims: "CD3", Method: "gate"},
		{Alias: "cd4", Parent: "root", Dims: "CD4", Method: "gate"},
	})

	reg := registry.New()
	rec := &recorder{}
	var order []string
	var mu sync.Mutex
	track := func(name string) registry.Method {
		return func(_ context.Context, call *registry.Call) (cty.Value, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return rec.method(context.Background(), call)
		}
	}
	reg.RegisterGating("gate", track("gate"))
	reg.RegisterGating("boolGate", track("bool"))

	d := New(g, reg, testSource(1), flowdata.NewMemoryStore())
	require.NoError(t, d.Run(context.Background(), Options{}))
	require.Len(t, order, 3)
	assert.Equal(t, "bool", order[2], "boolean node must run last")
}
