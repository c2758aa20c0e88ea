package contract

import (
	"context"

	"portfolio-ai-be/internal/entity"
	"portfolio-ai-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChunkWithDocument pairs a chunk with the title of its parent document,
// so retrieval results can be cited without a second lookup.
type ChunkWithDocument struct {
	Chunk         *entity.DocumentChunk
	DocumentTitle string
}

type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error // Hard delete, superseded chunks are not kept
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindAllWithTitles returns every chunk of every live document,
	// embeddings included, for in-process similarity ranking.
	FindAllWithTitles(ctx context.Context) ([]*ChunkWithDocument, error)
}
