package graph

import (
	"context"
	"fmt"

	"ai-edulab-be/pkg/store"
)

// Node is a single-responsibility state transformation step. Apply
// must never panic past its own boundary: collaborator failures are
// recorded on the state and surfaced through routing, not returned.
type Node interface {
	Name() string
	Apply(ctx context.Context, state *store.State) *store.State
}

// RouteFunc maps the current state to a named edge label. It must be
// pure: it reads state fields and nothing else.
type RouteFunc func(state *store.State) string

type conditionalEdge struct {
	route RouteFunc
	table map[string]string
}

// Graph is the builder for a compiled pipeline. Nodes are registered
// by name, wired with conditional edges, and validated at Compile.
type Graph struct {
	nodes     map[string]Node
	edges     map[string]conditionalEdge
	terminals map[string]bool
	entry     string
}

// NewGraph creates an empty graph builder.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]Node),
		edges:     make(map[string]conditionalEdge),
		terminals: make(map[string]bool),
	}
}

// AddNode registers a node under its own name.
func (g *Graph) AddNode(node Node) *Graph {
	g.nodes[node.Name()] = node
	return g
}

// SetEntryPoint names the node execution starts from.
func (g *Graph) SetEntryPoint(name string) *Graph {
	g.entry = name
	return g
}

// AddConditionalEdges wires a routing function and its label table to
// the given source node.
func (g *Graph) AddConditionalEdges(from string, route RouteFunc, table map[string]string) *Graph {
	g.edges[from] = conditionalEdge{route: route, table: table}
	return g
}

// AddEdge wires an unconditional transition.
func (g *Graph) AddEdge(from, to string) *Graph {
	return g.AddConditionalEdges(from,
		func(*store.State) string { return "next" },
		map[string]string{"next": to},
	)
}

// MarkTerminal flags a node as terminal: the executor stops and
// returns the state after it runs.
func (g *Graph) MarkTerminal(name string) *Graph {
	g.terminals[name] = true
	return g
}

// Compile validates the graph definition and returns a Runnable.
// Validation failures here are programming errors in the graph
// wiring, not runtime conditions.
func (g *Graph) Compile() (*Runnable, error) {
	if g.entry == "" {
		return nil, fmt.Errorf("graph: no entry point set")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("graph: entry node %q not registered", g.entry)
	}
	for name := range g.nodes {
		if g.terminals[name] {
			continue
		}
		if _, ok := g.edges[name]; !ok {
			return nil, fmt.Errorf("graph: non-terminal node %q has no outgoing edges", name)
		}
	}
	for from, edge := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("graph: edge source %q not registered", from)
		}
		for label, to := range edge.table {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("graph: edge %q -> %q targets unknown node %q", from, label, to)
			}
		}
	}
	return &Runnable{
		nodes:     g.nodes,
		edges:     g.edges,
		terminals: g.terminals,
		entry:     g.entry,
	}, nil
}

// Runnable is a compiled, immutable pipeline. It is safe for
// concurrent use: all mutable data lives on the state passed to Run.
type Runnable struct {
	nodes     map[string]Node
	edges     map[string]conditionalEdge
	terminals map[string]bool
	entry     string
}

// Run drives the state through the graph until a terminal node has
// executed. A routing function returning a label absent from its
// table is a contract violation and fails loudly; every other failure
// class is handled inside the nodes themselves. The executor performs
// no retries, timeouts, or parallelism of its own.
func (r *Runnable) Run(ctx context.Context, state *store.State) (*store.State, error) {
	current := r.entry
	for {
		node, ok := r.nodes[current]
		if !ok {
			return state, fmt.Errorf("graph: unknown node %q", current)
		}

		state = node.Apply(ctx, state)

		if r.terminals[current] {
			return state, nil
		}

		edge := r.edges[current]
		label := edge.route(state)
		next, ok := edge.table[label]
		if !ok {
			return state, fmt.Errorf("graph: node %q routed to unknown label %q", current, label)
		}
		current = next
	}
}
