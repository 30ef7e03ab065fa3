package graph

import (
	"fmt"
	"sort"
)

// RootPath is the path of the synthetic root node representing the
// ungated whole data set.
const RootPath = "root"

// Graph is the immutable population DAG. Nodes are keyed by path; edges
// are held in insertion order so rebuilding the same template yields a
// structurally identical graph.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []*Edge
}

// New creates an empty graph containing only the synthetic root node.
func New() *Graph {
	g := &Graph{nodes: make(map[string]*Node)}
	g.addNode(&Node{Path: RootPath, Name: RootPath, Aliases: []string{RootPath}})
	return g
}

func (g *Graph) addNode(n *Node) {
	g.nodes[n.Path] = n
	g.order = append(g.order, n.Path)
}

func (g *Graph) addEdge(e *Edge) error {
	if e.Parent == e.Child {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", e.Parent, e.Child)
	}
	if _, ok := g.nodes[e.Parent]; !ok {
		return fmt.Errorf("source node not found: %s", e.Parent)
	}
	if _, ok := g.nodes[e.Child]; !ok {
		return fmt.Errorf("destination node not found: %s", e.Child)
	}
	g.edges = append(g.edges, e)
	return nil
}

// Node returns the node at the given path, or nil.
func (g *Graph) Node(path string) *Node { return g.nodes[path] }

// Nodes returns all nodes in insertion order, root first.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, p := range g.order {
		out[i] = g.nodes[p]
	}
	return out
}

// Edges returns all edges in insertion order, ordering-only included.
func (g *Graph) Edges() []*Edge { return g.edges }

// ParentEdge returns the processing edge into the given child, or nil
// for the root. Ordering-only edges are never returned.
func (g *Graph) ParentEdge(child string) *Edge {
	for _, e := range g.edges {
		if e.Child == child && !e.OrderOnly {
			return e
		}
	}
	return nil
}

// TopoSort returns node paths in dependency order. Ordering-only edges
// constrain the order exactly like processing edges. Ties break on node
// insertion order, keeping the result deterministic. A cycle is an error
// naming one involved node.
func (g *Graph) TopoSort() ([]string, error) {
	rank := make(map[string]int, len(g.order))
	for i, p := range g.order {
		rank[p] = i
	}

	indegree := make(map[string]int, len(g.order))
	succ := make(map[string][]string, len(g.order))
	for _, e := range g.edges {
		indegree[e.Child]++
		succ[e.Parent] = append(succ[e.Parent], e.Child)
	}

	var ready []string
	for _, p := range g.order {
		if indegree[p] == 0 {
			ready = append(ready, p)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return rank[ready[i]] < rank[ready[j]] })
		p := ready[0]
		ready = ready[1:]
		out = append(out, p)

		for _, child := range succ[p] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(out) != len(g.order) {
		for _, p := range g.order {
			if indegree[p] > 0 {
				return nil, fmt.Errorf("cycle detected involving node '%s'", p)
			}
		}
	}
	return out, nil
}
