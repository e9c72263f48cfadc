package qgen

import (
	"context"
	"log"

	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/store"
)

// CleanState is the agent's only terminal. It strips scratch fields
// the caller has no use for and stamps the completion timestamp.
type CleanState struct {
	sink   events.StreamSink
	logger *log.Logger
}

func NewCleanState(sink events.StreamSink, logger *log.Logger) *CleanState {
	return &CleanState{sink: sink, logger: logger}
}

func (n *CleanState) Name() string { return NodeCleanState }

func (n *CleanState) Apply(ctx context.Context, state *store.State) *store.State {
	// Scratch fields: loaded materials and routing internals
	state.Materials = nil
	state.RouteOp = ""
	state.NextAction = ""

	state.Complete()

	if state.Error != "" {
		n.sink.Emit(events.KindError, map[string]interface{}{
			"session_id": state.Identity.SessionId.String(),
			"error":      state.Error,
		})
		n.logger.Printf("[CLEAN] Session %s finished with error: %s", state.Identity.SessionId, state.Error)
		return state
	}

	n.sink.Emit(events.KindDone, map[string]interface{}{
		"session_id": state.Identity.SessionId.String(),
		"questions":  len(state.Questions),
		"iterations": state.IterationCount,
	})
	n.logger.Printf("[CLEAN] Session %s finished with %d questions after %d iterations",
		state.Identity.SessionId, len(state.Questions), state.IterationCount)
	return state
}
