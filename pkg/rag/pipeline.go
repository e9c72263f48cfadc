package rag

import (
	"context"
	"log"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/graph"
	"ai-edulab-be/pkg/llm"
	"ai-edulab-be/pkg/retrieval"
	"ai-edulab-be/pkg/store"
)

// Pipeline is the compiled self-corrective RAG graph. Collaborators
// are injected once at construction; all per-run data lives on the
// state, so one Pipeline serves concurrent sessions.
type Pipeline struct {
	runnable *graph.Runnable
	logger   *log.Logger
}

// NewPipeline wires the RAG nodes into a compiled graph:
//
//	query_analyzer -> retriever -> relevance_grader
//	    -> query_rewriter (back to retriever, bounded)
//	    -> answer_generator -> hallucination_checker -> complete
//	any node may route to fail
func NewPipeline(
	llmProvider llm.LLMProvider,
	searcher retrieval.Searcher,
	sink events.StreamSink,
	logger *log.Logger,
) (*Pipeline, error) {
	if sink == nil {
		sink = events.NopSink{}
	}

	route := func(state *store.State) string { return state.NextAction }

	g := graph.NewGraph().
		AddNode(NewQueryAnalyzer(llmProvider, sink, logger)).
		AddNode(NewRetriever(searcher, sink, logger)).
		AddNode(NewRelevanceGrader(llmProvider, sink, logger)).
		AddNode(NewQueryRewriter(llmProvider, sink, logger)).
		AddNode(NewAnswerGenerator(llmProvider, sink, logger)).
		AddNode(NewHallucinationChecker(llmProvider, sink, logger)).
		AddNode(NewCompleteNode(sink, logger)).
		AddNode(NewFailNode(sink, logger)).
		SetEntryPoint(NodeQueryAnalyzer).
		AddConditionalEdges(NodeQueryAnalyzer, route, map[string]string{
			store.ActionRetrieve: NodeRetriever,
			store.ActionFail:     NodeFail,
		}).
		AddConditionalEdges(NodeRetriever, route, map[string]string{
			store.ActionGrade: NodeRelevanceGrader,
			store.ActionFail:  NodeFail,
		}).
		AddConditionalEdges(NodeRelevanceGrader, route, map[string]string{
			store.ActionRewrite:  NodeQueryRewriter,
			store.ActionGenerate: NodeAnswerGenerator,
			store.ActionFail:     NodeFail,
		}).
		AddConditionalEdges(NodeQueryRewriter, route, map[string]string{
			store.ActionRetrieve: NodeRetriever,
			store.ActionFail:     NodeFail,
		}).
		AddConditionalEdges(NodeAnswerGenerator, route, map[string]string{
			store.ActionCheck:    NodeHallucinationChecker,
			store.ActionComplete: NodeComplete,
			store.ActionFail:     NodeFail,
		}).
		AddConditionalEdges(NodeHallucinationChecker, route, map[string]string{
			store.ActionComplete: NodeComplete,
		}).
		MarkTerminal(NodeComplete).
		MarkTerminal(NodeFail)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}

	return &Pipeline{runnable: runnable, logger: logger}, nil
}

// Run drives one query through the graph. The returned state is
// terminal: either GeneratedAnswer or Error is set, never both empty.
func (p *Pipeline) Run(ctx context.Context, state *store.State) (*store.State, error) {
	return p.runnable.Run(ctx, state)
}
