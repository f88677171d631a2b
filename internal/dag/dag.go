// SPDX-License-Identifier: MPL-2.0

// Package dag provides the dependency graph built from nanoservice declarations:
// topological ordering, cycle detection, and Graphviz DOT / YAML rendering.
package dag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// KindManifest is a workspace manifest.
	KindManifest Kind = "manifest"
	// KindNanoservice is an extracted artifact (a manifest inside the cache).
	KindNanoservice Kind = "nanoservice"
	// KindDeclaration is a declared dependency name.
	KindDeclaration Kind = "declaration"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// Kind classifies a node for rendering.
	Kind string

	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle (not necessarily all of them,
		// but enough to identify the problem).
		Cycle []string
	}

	// Node is a graph vertex.
	Node struct {
		ID   string `yaml:"id"`
		Kind Kind   `yaml:"kind,omitempty"`
	}

	// Edge is a directed edge; From must be built before To.
	Edge struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	}

	// Graph is a directed dependency graph.
	// Nodes are identified by string keys. An edge from A to B means B depends on A.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// kinds records the kind of every node.
		kinds map[string]Kind
	}

	export struct {
		Nodes []Node `yaml:"nodes"`
		Edges []Edge `yaml:"edges"`
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		kinds:     make(map[string]Kind),
	}
}

// AddNode adds a node to the graph. Adding an existing node only fills in a
// kind that was not known yet.
func (g *Graph) AddNode(name string, kind Kind) {
	if existing, ok := g.kinds[name]; ok {
		if existing == "" {
			g.kinds[name] = kind
		}
		return
	}
	g.kinds[name] = kind
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "to" depends on "from".
// Both nodes are implicitly added if they don't exist. Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from, "")
	g.AddNode(to, "")
	for _, n := range g.adjacency[from] {
		if n == to {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, Node{ID: n, Kind: g.kinds[n]})
	}
	return out
}

// Edges returns all edges ordered by source insertion, then edge insertion.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, from := range g.nodes {
		for _, to := range g.adjacency[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// TopologicalSort returns a valid build order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

// DOT renders the graph in Graphviz DOT format.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph nanoservices {\n")
	b.WriteString("\trankdir=LR;\n")
	for _, n := range g.nodes {
		fmt.Fprintf(&b, "\t%s [shape=%s];\n", strconv.Quote(n), shape(g.kinds[n]))
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "\t%s -> %s;\n", strconv.Quote(e.From), strconv.Quote(e.To))
	}
	b.WriteString("}\n")
	return b.String()
}

// Export renders the graph as a YAML document with nodes and edges lists.
func (g *Graph) Export() ([]byte, error) {
	data, err := yaml.Marshal(export{Nodes: g.Nodes(), Edges: g.Edges()})
	if err != nil {
		return nil, fmt.Errorf("export graph: %w", err)
	}
	return data, nil
}

func shape(k Kind) string {
	switch k {
	case KindManifest:
		return "note"
	case KindNanoservice:
		return "box3d"
	default:
		return "ellipse"
	}
}
