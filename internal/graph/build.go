package graph

import (
	"context"
	"strings"

	"github.com/vk/cytograph/internal/ctxlog"
	"github.com/vk/cytograph/internal/gateargs"
	"github.com/vk/cytograph/internal/template"
)

// Build constructs the population DAG from validated rows, in input
// order. The first pass creates nodes and processing edges; the second
// resolves reference expressions into ordering-only edges. The returned
// graph is immutable and cycle-free.
func Build(ctx context.Context, rows []template.ValidatedRow) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	g := New()

	rowPaths := make([]string, len(rows))
	for i, vr := range rows {
		path, err := g.addRow(i+1, vr, rows[:i], rowPaths[:i])
		if err != nil {
			return nil, err
		}
		rowPaths[i] = path
		logger.Info("Population added.", "path", path, "method", vr.Method)
	}

	for i := range rows {
		if err := g.resolveReferences(i+1, rowPaths[i], rows, rowPaths); err != nil {
			return nil, err
		}
	}

	if _, err := g.TopoSort(); err != nil {
		return nil, &template.ValidationError{Field: "graph", Msg: err.Error()}
	}
	return g, nil
}

// childPath joins a parent path and alias, stripping the literal root
// segment so a child of root lives at "/<alias>".
func childPath(parentPath, alias string) string {
	if parentPath == RootPath {
		return template.PathSep + alias
	}
	return parentPath + template.PathSep + alias
}

// addRow performs the first-pass work for one row: node creation,
// descriptor construction and the processing edge.
func (g *Graph) addRow(num int, vr template.ValidatedRow, prev []template.ValidatedRow, prevPaths []string) (string, error) {
	parentPath, err := g.resolveParent(num, vr.Parent, prev, prevPaths)
	if err != nil {
		return "", err
	}

	alias := strings.Join(vr.Aliases, ",")
	path := childPath(parentPath, alias)
	if g.Node(path) != nil {
		return "", &template.ValidationError{Row: num, Field: "alias", Msg: "duplicate population path " + path}
	}

	gating, err := buildDescriptor(num, vr.Method, vr.Args, vr.Dims, vr.GroupBy, vr.CollapseVal)
	if err != nil {
		return "", err
	}

	var prep *MethodDescriptor
	if strings.TrimSpace(vr.PrepMethod) != "" {
		prep, err = buildDescriptor(num, vr.PrepMethod, vr.PrepArgs, vr.Dims, vr.GroupBy, vr.CollapseVal)
		if err != nil {
			return "", err
		}
	}

	g.addNode(&Node{Path: path, Name: alias, Aliases: vr.Aliases})
	if err := g.addEdge(&Edge{Parent: parentPath, Child: path, Gating: gating, Preprocessing: prep}); err != nil {
		return "", &template.ValidationError{Row: num, Field: "parent", Msg: err.Error()}
	}
	return path, nil
}

// buildDescriptor assembles one method descriptor. Reference-family
// methods defer argument parsing: their argument text is a dependency
// expression captured verbatim.
func buildDescriptor(num int, method, rawArgs, rawDims, groupBy string, collapse bool) (*MethodDescriptor, error) {
	kind := KindOf(method)

	var args gateargs.List
	var refExpr string
	var err error
	if kind == KindPlain {
		args, err = gateargs.Parse(rawArgs)
	} else {
		args, err = gateargs.ParseDeferred(rawArgs)
		if err == nil {
			refExpr = args[0].Raw
		}
	}
	if err != nil {
		return nil, err
	}

	dims := splitList(rawDims, ",")
	if kind != KindPlain && len(dims) == 0 {
		return nil, &template.ValidationError{Row: num, Field: "dims", Msg: "reference method " + method + " requires a dimension list"}
	}

	return &MethodDescriptor{
		Kind:     kind,
		Name:     strings.TrimSpace(method),
		Dims:     dims,
		Args:     args,
		RefExpr:  refExpr,
		GroupBy:  strings.TrimSpace(groupBy),
		Collapse: collapse,
	}, nil
}

// resolveParent maps the parent column to a node path. A value starting
// with the path delimiter must name an existing node; anything else is
// an alias resolved against earlier rows.
func (g *Graph) resolveParent(num int, parent string, prev []template.ValidatedRow, prevPaths []string) (string, error) {
	parent = strings.TrimSpace(parent)
	if parent == "" || parent == template.RootAlias {
		return RootPath, nil
	}
	if strings.HasPrefix(parent, template.PathSep) {
		if g.Node(parent) == nil {
			return "", &template.ValidationError{Row: num, Field: "parent", Msg: "parent path " + parent + " is not defined"}
		}
		return parent, nil
	}

	paths := matchAlias(parent, prev, prevPaths)
	switch len(paths) {
	case 1:
		return paths[0], nil
	case 0:
		return "", &template.ValidationError{Row: num, Field: "parent", Msg: "parent " + parent + " does not match any earlier population"}
	default:
		return "", &template.ValidationError{Row: num, Field: "parent", Msg: "parent " + parent + " is ambiguous: " + strings.Join(paths, ", ")}
	}
}

// resolveReferences performs the second-pass work for one row: splitting
// the captured dependency expression, resolving each referenced name to
// a unique node path, and inserting ordering-only edges.
func (g *Graph) resolveReferences(num int, path string, rows []template.ValidatedRow, rowPaths []string) error {
	desc := g.ParentEdge(path).Gating
	if !desc.IsReference() {
		return nil
	}

	for _, name := range splitRefNames(desc.RefExpr, desc.Kind) {
		refPath, err := g.resolveReference(num, name, rows, rowPaths)
		if err != nil {
			return err
		}
		desc.Refs = append(desc.Refs, refPath)
		if err := g.addEdge(&Edge{Parent: refPath, Child: path, OrderOnly: true}); err != nil {
			return &template.ValidationError{Row: num, Field: "gating_args", Msg: err.Error()}
		}
	}

	if desc.Kind == KindPolyfunctional {
		desc.Kind = KindSubsets
	}
	return nil
}

// splitRefNames extracts referenced node names from a dependency
// expression. Boolean expressions drop negations and split on the
// logical operators; the other reference variants split on colons.
func splitRefNames(expr string, kind Kind) []string {
	if kind == KindBoolean || kind == KindPolyfunctional {
		expr = strings.ReplaceAll(expr, "!", "")
		return splitList(expr, "&", "|")
	}
	return splitList(expr, ":")
}

// resolveReference maps one referenced name to a node path: either an
// explicit path, or an alias that must resolve to exactly one path
// across the whole specification.
func (g *Graph) resolveReference(num int, name string, rows []template.ValidatedRow, rowPaths []string) (string, error) {
	if strings.HasPrefix(name, template.PathSep) {
		if g.Node(name) == nil {
			return "", &template.ValidationError{Row: num, Field: "gating_args", Msg: "referenced path " + name + " is not defined"}
		}
		return name, nil
	}

	paths := matchAlias(name, rows, rowPaths)
	switch len(paths) {
	case 1:
		return paths[0], nil
	case 0:
		return "", &template.ValidationError{Row: num, Field: "gating_args", Msg: "referenced population " + name + " does not match any row"}
	default:
		return "", &template.ValidationError{Row: num, Field: "gating_args", Msg: "referenced population " + name + " is ambiguous: " + strings.Join(paths, ", ")}
	}
}

// matchAlias returns the distinct node paths of rows whose alias set
// contains name, preserving row order.
func matchAlias(name string, rows []template.ValidatedRow, rowPaths []string) []string {
	var paths []string
	for i, vr := range rows {
		for _, a := range vr.Aliases {
			if a == name {
				if !containsString(paths, rowPaths[i]) {
					paths = append(paths, rowPaths[i])
				}
				break
			}
		}
	}
	return paths
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// splitList splits text on any of the given single-character separators,
// trimming items and dropping empties.
func splitList(text string, seps ...string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	items := []string{text}
	for _, sep := range seps {
		var next []string
		for _, item := range items {
			next = append(next, strings.Split(item, sep)...)
		}
		items = next
	}
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
