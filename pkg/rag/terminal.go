package rag

import (
	"context"
	"log"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/store"
)

// CompleteNode stamps the terminal timestamp on a successful run.
type CompleteNode struct {
	sink   events.StreamSink
	logger *log.Logger
}

func NewCompleteNode(sink events.StreamSink, logger *log.Logger) *CompleteNode {
	return &CompleteNode{sink: sink, logger: logger}
}

func (n *CompleteNode) Name() string { return NodeComplete }

func (n *CompleteNode) Apply(ctx context.Context, state *store.State) *store.State {
	state.Complete()
	state.AddThinkingStep("complete", "Pipeline completed")
	n.sink.Emit(events.KindDone, map[string]interface{}{
		"session_id": state.Identity.SessionId.String(),
		"attempts":   state.RetrievalAttempts,
	})
	n.logger.Printf("[COMPLETE] Session %s finished after %d retrieval attempts",
		state.Identity.SessionId, state.RetrievalAttempts)
	return state
}

// FailNode stamps the terminal timestamp and guarantees a non-empty
// error message on the way out.
type FailNode struct {
	sink   events.StreamSink
	logger *log.Logger
}

func NewFailNode(sink events.StreamSink, logger *log.Logger) *FailNode {
	return &FailNode{sink: sink, logger: logger}
}

func (n *FailNode) Name() string { return NodeFail }

func (n *FailNode) Apply(ctx context.Context, state *store.State) *store.State {
	if state.Error == "" {
		state.Error = "pipeline failed for an unknown reason"
	}
	state.Complete()
	state.AddThinkingStep("fail", state.Error)
	n.sink.Emit(events.KindError, map[string]interface{}{
		"session_id": state.Identity.SessionId.String(),
		"error":      state.Error,
	})
	n.logger.Printf("[FAIL] Session %s failed: %s", state.Identity.SessionId, state.Error)
	return state
}
