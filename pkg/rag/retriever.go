package rag

import (
	"context"
	"fmt"
	"log"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/retrieval"
	"ai-edulab-be/pkg/store"
)

// Retriever runs one vector search against the material corpus. Every
// visit counts against the run's retrieval budget, including visits
// reached through the rewrite loop.
type Retriever struct {
	searcher retrieval.Searcher
	sink     events.StreamSink
	logger   *log.Logger
}

func NewRetriever(searcher retrieval.Searcher, sink events.StreamSink, logger *log.Logger) *Retriever {
	return &Retriever{
		searcher: searcher,
		sink:     sink,
		logger:   logger,
	}
}

func (n *Retriever) Name() string { return NodeRetriever }

func (n *Retriever) Apply(ctx context.Context, state *store.State) *store.State {
	state.RetrievalAttempts++
	state.AddThinkingStep("retrieval", fmt.Sprintf("Retrieval attempt %d for %q", state.RetrievalAttempts, state.CurrentQuery))
	n.sink.Emit(events.KindAction, map[string]interface{}{
		"step":    "retrieving",
		"attempt": state.RetrievalAttempts,
	})

	scope := retrieval.Scope{
		TenantId:    state.Identity.TenantId,
		MaterialIds: state.DocumentIds,
	}

	docs, err := n.searcher.Search(ctx, state.CurrentQuery, scope, state.Config.TopK)
	if err != nil {
		n.logger.Printf("[ERROR] Retrieval attempt %d failed: %v", state.RetrievalAttempts, err)
		state.Fail(fmt.Sprintf("retrieval failed: %v", err))
		return state
	}

	n.logger.Printf("[RETRIEVAL] Attempt %d returned %d candidates", state.RetrievalAttempts, len(docs))

	for _, doc := range docs {
		n.sink.Emit(events.KindSourceFound, map[string]interface{}{
			"source_id":   doc.SourceId,
			"source_name": doc.SourceName,
			"score":       doc.Score,
		})
	}

	state.RetrievedDocuments = docs
	state.NextAction = store.ActionGrade
	return state
}
