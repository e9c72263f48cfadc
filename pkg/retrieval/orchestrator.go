package retrieval

import (
	"context"
	"fmt"
	"log"

	"ai-edulab-be/internal/repository/contract"
	"ai-edulab-be/pkg/embedding"
	"ai-edulab-be/pkg/store"
)

// Orchestrator executes embedding-based vector search over the
// material corpus.
type Orchestrator struct {
	embeddingProvider embedding.EmbeddingProvider
	embeddingRepo     contract.MaterialEmbeddingRepository
	materialRepo      contract.MaterialRepository
	logger            *log.Logger
}

func NewOrchestrator(
	embeddingProvider embedding.EmbeddingProvider,
	embeddingRepo contract.MaterialEmbeddingRepository,
	materialRepo contract.MaterialRepository,
	logger *log.Logger,
) *Orchestrator {
	return &Orchestrator{
		embeddingProvider: embeddingProvider,
		embeddingRepo:     embeddingRepo,
		materialRepo:      materialRepo,
		logger:            logger,
	}
}

var _ Searcher = &Orchestrator{}

// Search embeds the query and runs a tenant-scoped pgvector search,
// deduplicating chunks by (material, chunk index).
func (o *Orchestrator) Search(ctx context.Context, query string, scope Scope, topK int) ([]store.RetrievedDocument, error) {
	embeddingRes, err := o.embeddingProvider.Generate(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	scored, err := o.embeddingRepo.SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		topK,
		scope.TenantId,
		scope.MaterialIds,
		0.0,
	)
	if err != nil {
		o.logger.Printf("[ERROR] Vector search failed: %v", err)
		return nil, err
	}

	o.logger.Printf("[DEBUG] Raw search results: %d chunks", len(scored))

	names := o.materialNames(ctx, scope, scored)

	seen := make(map[string]bool)
	docs := make([]store.RetrievedDocument, 0, len(scored))
	for _, res := range scored {
		key := fmt.Sprintf("%s/%d", res.Embedding.MaterialId, res.Embedding.ChunkIndex)
		if seen[key] {
			continue
		}
		seen[key] = true

		docs = append(docs, store.RetrievedDocument{
			Content:    res.Embedding.Document,
			SourceId:   res.Embedding.MaterialId.String(),
			SourceName: names[res.Embedding.MaterialId.String()],
			Page:       res.Embedding.Page,
			ChunkIndex: res.Embedding.ChunkIndex,
			Score:      res.Similarity,
		})
	}

	o.logger.Printf("[DEBUG] Deduplicated candidates: %d chunks", len(docs))

	return docs, nil
}

func (o *Orchestrator) materialNames(ctx context.Context, scope Scope, scored []*contract.ScoredMaterialEmbedding) map[string]string {
	names := make(map[string]string)

	seen := make(map[string]bool)
	for _, res := range scored {
		id := res.Embedding.MaterialId
		if seen[id.String()] {
			continue
		}
		seen[id.String()] = true

		material, err := o.materialRepo.FindOne(ctx, scope.TenantId, id)
		if err != nil || material == nil {
			o.logger.Printf("[WARN] Failed to hydrate material %s: %v", id, err)
			continue
		}
		names[id.String()] = material.Name
	}

	return names
}
