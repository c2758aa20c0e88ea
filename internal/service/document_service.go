// FILE: internal/service/document_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portfolio-ai-be/internal/apperror"
	"portfolio-ai-be/internal/dto"
	"portfolio-ai-be/internal/entity"
	"portfolio-ai-be/internal/pkg/logger"
	"portfolio-ai-be/internal/repository/specification"
	"portfolio-ai-be/internal/repository/unitofwork"
	"portfolio-ai-be/internal/stream"
	"portfolio-ai-be/pkg/embedding"
	"portfolio-ai-be/pkg/events"
	"portfolio-ai-be/pkg/nats"
	"portfolio-ai-be/pkg/rag"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, uploadedBy *uuid.UUID, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	Update(ctx context.Context, id uuid.UUID, request *dto.UpdateDocumentRequest) (*dto.GetDocumentResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.GetDocumentResponse, error)
	List(ctx context.Context, query *dto.ListDocumentsQuery) ([]*dto.ListDocumentsResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	hub               *stream.Hub
	publisher         *nats.Publisher
	logger            logger.ILogger
	embedConcurrency  int
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	hub *stream.Hub,
	publisher *nats.Publisher,
	log logger.ILogger,
	embedConcurrency int,
) IDocumentService {
	if embedConcurrency <= 0 {
		embedConcurrency = 4
	}
	return &documentService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		hub:               hub,
		publisher:         publisher,
		logger:            log,
		embedConcurrency:  embedConcurrency,
	}
}

func (s *documentService) Upload(ctx context.Context, uploadedBy *uuid.UUID, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document := &entity.Document{
		Id:          uuid.New(),
		Title:       request.Title,
		Description: request.Description,
		Content:     request.Content,
		SourceType:  "text",
		Size:        len(request.Content),
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now(),
	}
	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		return nil, err
	}

	chunks, err := s.buildChunks(ctx, document.Id, request.Content)
	if err != nil {
		// The half-created document must not survive a failed pipeline.
		if delErr := uow.DocumentRepository().DeleteUnscoped(ctx, document.Id); delErr != nil {
			s.logger.Error("document", "rollback of failed upload did not complete", map[string]interface{}{
				"document_id": document.Id,
				"error":       delErr.Error(),
			})
			return nil, apperror.Consistency("document.upload", delErr)
		}
		s.emitLog(document.Id, "failed", "processing failed, document rolled back")
		return nil, err
	}

	if err := s.storeChunks(ctx, uow, document, chunks); err != nil {
		if delErr := uow.DocumentRepository().DeleteUnscoped(ctx, document.Id); delErr != nil {
			return nil, apperror.Consistency("document.upload", delErr)
		}
		s.emitLog(document.Id, "failed", "storing chunks failed, document rolled back")
		return nil, err
	}

	s.emitLog(document.Id, "done", fmt.Sprintf("document indexed with %d chunks", len(chunks)))
	s.publishEvent(ctx, events.NewDocumentProcessed(document.Id, document.Title, len(chunks)))

	return &dto.UploadDocumentResponse{
		Id:         document.Id,
		Title:      document.Title,
		ChunkCount: len(chunks),
		CreatedAt:  document.CreatedAt,
	}, nil
}

func (s *documentService) Update(ctx context.Context, id uuid.UUID, request *dto.UpdateDocumentRequest) (*dto.GetDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperror.NotFound("document")
	}

	if request.Title != "" {
		document.Title = request.Title
	}
	if request.Description != "" {
		document.Description = request.Description
	}
	document.Content = request.Content
	document.Size = len(request.Content)

	// Embed before touching storage so a failed pipeline leaves the
	// previous chunks untouched.
	chunks, err := s.buildChunks(ctx, document.Id, request.Content)
	if err != nil {
		s.emitLog(document.Id, "failed", "reprocessing failed, previous chunks kept")
		return nil, err
	}

	if err := s.storeChunks(ctx, uow, document, chunks); err != nil {
		s.emitLog(document.Id, "failed", "storing chunks failed, previous chunks kept")
		return nil, err
	}

	s.emitLog(document.Id, "done", fmt.Sprintf("document reindexed with %d chunks", len(chunks)))
	s.publishEvent(ctx, events.NewDocumentProcessed(document.Id, document.Title, len(chunks)))

	return s.toGetResponse(document), nil
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*dto.GetDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperror.NotFound("document")
	}
	return s.toGetResponse(document), nil
}

func (s *documentService) List(ctx context.Context, query *dto.ListDocumentsQuery) ([]*dto.ListDocumentsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{specification.OrderBy{Field: "created_at", Desc: true}}
	if query != nil {
		if query.Search != "" {
			specs = append(specs, specification.TitleContains{Query: query.Search})
		}
		if query.Limit > 0 {
			specs = append(specs, specification.Pagination{Limit: query.Limit, Offset: query.Offset})
		}
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ListDocumentsResponse, len(documents))
	for i, document := range documents {
		responses[i] = &dto.ListDocumentsResponse{
			Id:          document.Id,
			Title:       document.Title,
			Description: document.Description,
			Size:        document.Size,
			ChunkCount:  document.ChunkCount,
			CreatedAt:   document.CreatedAt,
			UpdatedAt:   document.UpdatedAt,
		}
	}
	return responses, nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if document == nil {
		return apperror.NotFound("document")
	}

	// Soft delete only. Chunks stay on disk but drop out of retrieval
	// through the live-document join.
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	retired, err := uow.DocumentChunkRepository().Count(ctx, specification.ByDocumentID{DocumentID: id})
	if err != nil {
		retired = -1
	}
	s.logger.Info("document", "document soft deleted", map[string]interface{}{
		"document_id":    id,
		"chunks_retired": retired,
	})

	s.publishEvent(ctx, events.NewDocumentDeleted(id))
	return nil
}

// buildChunks runs Chunker -> Embedder for one document. Chunk
// embeddings fan out concurrently, capped to avoid hammering the
// embedding backend.
func (s *documentService) buildChunks(ctx context.Context, documentId uuid.UUID, content string) ([]*entity.DocumentChunk, error) {
	pieces := rag.Chunk(content)
	if len(pieces) == 0 {
		return nil, apperror.Validation("document has no indexable content")
	}
	s.emitLog(documentId, "chunking", fmt.Sprintf("content split into %d chunks", len(pieces)))

	chunks := make([]*entity.DocumentChunk, len(pieces))
	errs := make([]error, len(pieces))

	sem := make(chan struct{}, s.embedConcurrency)
	var wg sync.WaitGroup

	for i, piece := range pieces {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			values, err := s.embeddingProvider.Generate(ctx, text, embedding.TaskTypeDocument)
			if err != nil {
				errs[i] = err
				return
			}
			chunks[i] = &entity.DocumentChunk{
				Id:         uuid.New(),
				DocumentId: documentId,
				Content:    text,
				ChunkIndex: i,
				Embedding:  values,
				CreatedAt:  time.Now(),
			}
		}(i, piece)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.logger.Error("document", "chunk embedding failed", map[string]interface{}{
				"document_id": documentId,
				"chunk_index": i,
				"error":       err.Error(),
			})
			return nil, err
		}
	}

	s.emitLog(documentId, "embedding", fmt.Sprintf("%d chunk embeddings generated", len(chunks)))
	return chunks, nil
}

// storeChunks supersedes the document's chunks and refreshes its chunk
// count inside one transaction.
func (s *documentService) storeChunks(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document, chunks []*entity.DocumentChunk) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		return err
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return err
	}

	document.ChunkCount = len(chunks)
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *documentService) toGetResponse(document *entity.Document) *dto.GetDocumentResponse {
	return &dto.GetDocumentResponse{
		Id:          document.Id,
		Title:       document.Title,
		Description: document.Description,
		Content:     document.Content,
		SourceType:  document.SourceType,
		Size:        document.Size,
		ChunkCount:  document.ChunkCount,
		CreatedAt:   document.CreatedAt,
		UpdatedAt:   document.UpdatedAt,
	}
}

func (s *documentService) emitLog(documentId uuid.UUID, stage, message string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(stream.LogEvent{
		DocumentId: documentId,
		Stage:      stage,
		Message:    message,
		Timestamp:  time.Now(),
	})
}

func (s *documentService) publishEvent(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("document", "event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
