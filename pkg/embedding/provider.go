package embedding

import "context"

// EmbeddingResponse wraps the vector produced for a piece of text.
type EmbeddingResponse struct {
	Embedding EmbeddingValues
}

type EmbeddingValues struct {
	Values []float32
}

// EmbeddingProvider generates text embeddings for retrieval queries.
// taskType distinguishes query-time from index-time embeddings for
// providers that care ("RETRIEVAL_QUERY" / "RETRIEVAL_DOCUMENT").
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}
