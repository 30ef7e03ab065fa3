// Package flowdata defines the engine's narrow view of the event-data
// backend: a read-only Source of per-sample event frames and metadata,
// and a Store answering idempotency queries over materialized results.
// In-memory implementations back the CLI and the tests.
package flowdata

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Channel describes one measured dimension of an event frame: the
// detector name and the marker stained on it.
type Channel struct {
	Name   string
	Marker string
}

// Frame is one sample's event matrix, one column per channel.
type Frame struct {
	Channels []string
	Events   [][]float64
}

// Column returns the values of the named channel across all events.
func (f *Frame) Column(name string) ([]float64, error) {
	col := -1
	for i, c := range f.Channels {
		if c == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("frame has no channel %q", name)
	}
	out := make([]float64, len(f.Events))
	for i, ev := range f.Events {
		out[i] = ev[col]
	}
	return out, nil
}

// Sample is one acquired specimen: its event frame plus study-variable
// metadata.
type Sample struct {
	ID        string
	Frame     *Frame
	Phenotype map[string]string
}

// Collection is an ordered set of samples keyed by identity.
type Collection []*Sample

// IDs returns the sample identifiers in collection order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, s := range c {
		ids[i] = s.ID
	}
	return ids
}

// Source is the read-only data backend consulted during dispatch.
type Source interface {
	// Samples returns the working collection in acquisition order.
	Samples() Collection
	// Channels returns the channel/marker metadata shared by all samples.
	Channels() []Channel
	// ResolveChannels maps template dimensions (channel or marker names)
	// to channel names, failing on any dimension it cannot resolve.
	ResolveChannels(dims []string) ([]string, error)
}

// Result is a node's materialized output: one value per sample, or one
// per group when the node collapsed its data.
type Result struct {
	Collapsed bool
	Keys      []string
	Values    []cty.Value
}

// Store records materialized population results. Exists is the
// idempotency query the dispatcher runs before executing a node.
type Store interface {
	Exists(parent, alias string) bool
	Put(parent, alias string, res Result)
	Get(parent, alias string) (Result, bool)
}
