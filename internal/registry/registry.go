// Package registry holds the name-indexed method implementations the
// dispatcher invokes. Gating and preprocessing methods live in separate
// namespaces, keyed by a prefixed, case-sensitive name so registered
// identifiers cannot collide with user-visible method names.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/cytograph/internal/flowdata"
	"github.com/vk/cytograph/internal/graph"
	"github.com/vk/cytograph/internal/partition"
	"github.com/zclconf/go-cty/cty"
)

// Namespace prefixes for registered method keys.
const (
	GatingPrefix        = "gating."
	PreprocessingPrefix = "preprocessing."
)

// Call carries everything a method implementation receives for one data
// group. Args is the merged argument map: descriptor defaults overlaid
// with caller-supplied overrides.
type Call struct {
	Group        partition.Group
	Dims         []string
	Source       flowdata.Source
	Descriptor   *graph.MethodDescriptor
	GroupBy      string
	Collapse     bool
	Args         map[string]cty.Value
	Preprocessed cty.Value
}

// Method is the fixed signature every registered implementation honors:
// one call per group, one result per call.
type Method func(ctx context.Context, call *Call) (cty.Value, error)

// Module is the interface method plugins implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry is the method lookup table for one engine instance. It is
// populated at startup and read-only during dispatch.
type Registry struct {
	methods map[string]Method
}

// New creates and initializes an empty Registry.
func New() *Registry {
	return &Registry{methods: make(map[string]Method)}
}

func (r *Registry) register(key string, m Method) {
	if _, exists := r.methods[key]; exists {
		panic(fmt.Sprintf("method with key '%s' already registered", key))
	}
	slog.Debug("Registering method.", "key", key)
	r.methods[key] = m
}

// RegisterGating registers a gating method under its template-facing name.
func (r *Registry) RegisterGating(name string, m Method) {
	r.register(GatingPrefix+name, m)
}

// RegisterPreprocessing registers a preprocessing method under its
// template-facing name.
func (r *Registry) RegisterPreprocessing(name string, m Method) {
	r.register(PreprocessingPrefix+name, m)
}

// Gating looks up a gating method by its template-facing name.
func (r *Registry) Gating(name string) (Method, bool) {
	m, ok := r.methods[GatingPrefix+name]
	return m, ok
}

// Preprocessing looks up a preprocessing method by its template-facing name.
func (r *Registry) Preprocessing(name string) (Method, bool) {
	m, ok := r.methods[PreprocessingPrefix+name]
	return m, ok
}
