package search

import (
	"context"

	"portfolio-ai-be/internal/pkg/logger"
	"portfolio-ai-be/internal/repository/contract"
	"portfolio-ai-be/pkg/embedding"
	"portfolio-ai-be/pkg/rag"

	"github.com/google/uuid"
)

// Result is one retrieved chunk with its provenance and score.
type Result struct {
	DocumentId    uuid.UUID
	DocumentTitle string
	ChunkIndex    int
	Content       string
	Score         float64
}

// Orchestrator runs the retrieval side of RAG: embed the query, scan
// every stored chunk, rank by cosine similarity.
type Orchestrator struct {
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewOrchestrator(embeddingProvider embedding.EmbeddingProvider, log logger.ILogger) *Orchestrator {
	return &Orchestrator{
		embeddingProvider: embeddingProvider,
		logger:            log,
	}
}

// Execute retrieves the topK most similar chunks for the query across
// all live documents. An empty corpus yields an empty result, not an
// error.
func (o *Orchestrator) Execute(
	ctx context.Context,
	chunkRepo contract.DocumentChunkRepository,
	query string,
	topK int,
) ([]Result, error) {
	queryVector, err := o.embeddingProvider.Generate(ctx, query, embedding.TaskTypeQuery)
	if err != nil {
		return nil, err
	}

	candidates, err := chunkRepo.FindAllWithTitles(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(candidates))
	for i, c := range candidates {
		vectors[i] = c.Chunk.Embedding
	}

	ranked, err := rag.TopK(queryVector, vectors, topK)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("search", "similarity ranking complete", map[string]interface{}{
		"candidates": len(candidates),
		"returned":   len(ranked),
	})

	results := make([]Result, len(ranked))
	for i, s := range ranked {
		c := candidates[s.Index]
		results[i] = Result{
			DocumentId:    c.Chunk.DocumentId,
			DocumentTitle: c.DocumentTitle,
			ChunkIndex:    c.Chunk.ChunkIndex,
			Content:       c.Chunk.Content,
			Score:         s.Score,
		}
	}
	return results, nil
}
