package retrieval

import (
	"context"

	"ai-edulab-be/pkg/store"

	"github.com/google/uuid"
)

// Scope restricts a search to one tenant's corpus, optionally to a
// subset of materials.
type Scope struct {
	TenantId    uuid.UUID
	MaterialIds []uuid.UUID
}

// Searcher is the retrieval collaborator the RAG pipeline depends on.
// Implementations return ranked chunks; the pipeline itself never
// touches the vector store directly.
type Searcher interface {
	Search(ctx context.Context, query string, scope Scope, topK int) ([]store.RetrievedDocument, error)
}
