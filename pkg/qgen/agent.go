package qgen

import (
	"context"
	"log"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/graph"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/store"
)

// Agent is the compiled question-generation graph. Like the RAG
// pipeline it is stateless across runs; every run gets a fresh state.
type Agent struct {
	runnable *graph.Runnable
	logger   *log.Logger
}

// NewAgent wires the nine agent nodes:
//
//	router -> one of {generate, update, rewrite, rewrite_theme, respond}
//	artifact ops -> generate_followup -> reflect? -> clean_state
//	reflect may loop back to the originating operation, bounded by
//	the iteration ceiling
func NewAgent(
	llmProvider llm.LLMProvider,
	sink events.StreamSink,
	logger *log.Logger,
) (*Agent, error) {
	if sink == nil {
		sink = events.NopSink{}
	}

	parser := NewParser()

	routeByOp := func(state *store.State) string { return state.RouteOp }
	routeByAction := func(state *store.State) string { return state.NextAction }

	opTargets := map[string]string{
		store.OpGenerate:     NodeGenerateArtifact,
		store.OpUpdate:       NodeUpdateArtifact,
		store.OpRewrite:      NodeRewriteQuestion,
		store.OpRewriteTheme: NodeRewriteTheme,
		store.OpRespond:      NodeRespondQuery,
	}

	afterOp := map[string]string{
		store.ActionFollowup: NodeFollowup,
		store.ActionClean:    NodeCleanState,
	}

	// Reflect either loops back to the operation that produced the
	// artifact or proceeds to cleanup.
	afterReflect := map[string]string{
		store.OpGenerate:     NodeGenerateArtifact,
		store.OpUpdate:       NodeUpdateArtifact,
		store.OpRewrite:      NodeRewriteQuestion,
		store.OpRewriteTheme: NodeRewriteTheme,
		store.ActionClean:    NodeCleanState,
	}

	g := graph.NewGraph().
		AddNode(NewRouter(logger)).
		AddNode(NewGenerateArtifact(llmProvider, parser, sink, logger)).
		AddNode(NewUpdateArtifact(llmProvider, parser, sink, logger)).
		AddNode(NewRewriteQuestion(llmProvider, parser, sink, logger)).
		AddNode(NewRewriteTheme(llmProvider, parser, sink, logger)).
		AddNode(NewRespondToQuery(llmProvider, sink, logger)).
		AddNode(NewGenerateFollowup(llmProvider, sink, logger)).
		AddNode(NewReflect(llmProvider, sink, logger)).
		AddNode(NewCleanState(sink, logger)).
		SetEntryPoint(NodeRouter).
		AddConditionalEdges(NodeRouter, routeByOp, opTargets).
		AddConditionalEdges(NodeGenerateArtifact, routeByAction, afterOp).
		AddConditionalEdges(NodeUpdateArtifact, routeByAction, afterOp).
		AddConditionalEdges(NodeRewriteQuestion, routeByAction, afterOp).
		AddConditionalEdges(NodeRewriteTheme, routeByAction, afterOp).
		AddConditionalEdges(NodeRespondQuery, routeByAction, map[string]string{
			store.ActionClean: NodeCleanState,
		}).
		AddConditionalEdges(NodeFollowup, routeByAction, map[string]string{
			store.ActionReflect: NodeReflect,
			store.ActionClean:   NodeCleanState,
		}).
		AddConditionalEdges(NodeReflect, routeByAction, afterReflect).
		MarkTerminal(NodeCleanState)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}

	return &Agent{runnable: runnable, logger: logger}, nil
}

// Run drives one request through the agent graph. The returned state
// is terminal: scratch fields are stripped and CompletedAt is set.
func (a *Agent) Run(ctx context.Context, state *store.State) (*store.State, error) {
	return a.runnable.Run(ctx, state)
}
