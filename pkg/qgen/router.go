package qgen

import (
	"context"
	"log"

	"ai-edulab-be/pkg/store"
)

// Router selects exactly one artifact operation from the caller's
// intent fields. It is a pure decision node: no external calls, no
// side effects beyond the route fields.
type Router struct {
	logger *log.Logger
}

func NewRouter(logger *log.Logger) *Router {
	return &Router{logger: logger}
}

func (n *Router) Name() string { return NodeRouter }

func (n *Router) Apply(ctx context.Context, state *store.State) *store.State {
	hasArtifact := state.Artifact != nil && len(state.Artifact.Questions) > 0

	switch {
	case state.NewTheme != "" && hasArtifact:
		state.RouteOp = store.OpRewriteTheme
	case state.TargetQuestionId != "" && hasArtifact:
		state.RouteOp = store.OpRewrite
	case state.UserQuery != "" && hasArtifact:
		state.RouteOp = store.OpRespond
	case hasArtifact:
		state.RouteOp = store.OpUpdate
	default:
		state.RouteOp = store.OpGenerate
	}

	n.logger.Printf("[ROUTER] Selected operation %s", state.RouteOp)
	state.AddThinkingStep("routing", "Selected operation "+state.RouteOp)
	return state
}
