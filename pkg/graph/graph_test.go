package graph

import (
	"context"
	"strings"
	"testing"

	"ai-edulab-be/pkg/store"
)

type stepNode struct {
	name  string
	apply func(s *store.State) *store.State
}

func (n *stepNode) Name() string { return n.name }

func (n *stepNode) Apply(_ context.Context, s *store.State) *store.State {
	if n.apply != nil {
		return n.apply(s)
	}
	return s
}

func node(name string, apply func(s *store.State) *store.State) Node {
	return &stepNode{name: name, apply: apply}
}

func newState() *store.State {
	return store.NewState(store.Identity{}, store.DefaultPipelineConfig())
}

func TestCompileValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Graph
		wantErr string
	}{
		{
			name: "no entry point",
			build: func() *Graph {
				g := NewGraph()
				g.AddNode(node("a", nil))
				g.MarkTerminal("a")
				return g
			},
			wantErr: "no entry point",
		},
		{
			name: "entry not registered",
			build: func() *Graph {
				g := NewGraph()
				g.AddNode(node("a", nil))
				g.MarkTerminal("a")
				g.SetEntryPoint("missing")
				return g
			},
			wantErr: "not registered",
		},
		{
			name: "non-terminal without edges",
			build: func() *Graph {
				g := NewGraph()
				g.AddNode(node("a", nil))
				g.SetEntryPoint("a")
				return g
			},
			wantErr: "no outgoing edges",
		},
		{
			name: "edge targets unknown node",
			build: func() *Graph {
				g := NewGraph()
				g.AddNode(node("a", nil))
				g.SetEntryPoint("a")
				g.AddEdge("a", "ghost")
				return g
			},
			wantErr: "unknown node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			if err == nil {
				t.Fatalf("Compile() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Compile() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunStopsAtTerminal(t *testing.T) {
	var visited []string

	g := NewGraph()
	g.AddNode(node("start", func(s *store.State) *store.State {
		visited = append(visited, "start")
		return s
	}))
	g.AddNode(node("end", func(s *store.State) *store.State {
		visited = append(visited, "end")
		s.Complete()
		return s
	}))
	g.SetEntryPoint("start")
	g.AddEdge("start", "end")
	g.MarkTerminal("end")

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	final, err := runnable.Run(context.Background(), newState())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if final.CompletedAt == nil {
		t.Error("terminal node did not stamp completion")
	}
	if len(visited) != 2 || visited[0] != "start" || visited[1] != "end" {
		t.Errorf("visit order = %v, want [start end]", visited)
	}
}

func TestRunConditionalRouting(t *testing.T) {
	g := NewGraph()
	g.AddNode(node("decide", func(s *store.State) *store.State {
		s.NextAction = store.ActionFail
		return s
	}))
	g.AddNode(node("ok", nil))
	g.AddNode(node("fail", func(s *store.State) *store.State {
		s.Fail("routed to fail")
		return s
	}))
	g.SetEntryPoint("decide")
	g.AddConditionalEdges("decide",
		func(s *store.State) string { return s.NextAction },
		map[string]string{
			store.ActionComplete: "ok",
			store.ActionFail:     "fail",
		},
	)
	g.MarkTerminal("ok")
	g.MarkTerminal("fail")

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	final, err := runnable.Run(context.Background(), newState())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if final.Error != "routed to fail" {
		t.Errorf("Error = %q, want %q", final.Error, "routed to fail")
	}
}

func TestRunUnknownLabelFailsLoudly(t *testing.T) {
	g := NewGraph()
	g.AddNode(node("decide", nil))
	g.AddNode(node("end", nil))
	g.SetEntryPoint("decide")
	g.AddConditionalEdges("decide",
		func(*store.State) string { return "nonexistent" },
		map[string]string{"next": "end"},
	)
	g.MarkTerminal("end")

	runnable, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}

	_, err = runnable.Run(context.Background(), newState())
	if err == nil {
		t.Fatal("Run() with unknown label should fail")
	}
	if !strings.Contains(err.Error(), "unknown label") {
		t.Errorf("Run() error = %v, want unknown label violation", err)
	}
}
