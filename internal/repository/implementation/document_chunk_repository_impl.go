package implementation

import (
	"context"
	"errors"

	"portfolio-ai-be/internal/entity"
	"portfolio-ai-be/internal/mapper"
	"portfolio-ai-be/internal/model"
	"portfolio-ai-be/internal/repository/contract"
	"portfolio-ai-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentChunkRepositoryImpl) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.mapper.ChunkToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ChunkToEntity(m)
	return nil
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ChunksToModels(chunks)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ChunkToEntity(m)
	}
	return nil
}

func (r *DocumentChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("document_id = ?", documentId).
		Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error) {
	var m model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChunkToEntity(&m), nil
}

func (r *DocumentChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ChunksToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

func (r *DocumentChunkRepositoryImpl) FindAllWithTitles(ctx context.Context) ([]*contract.ChunkWithDocument, error) {
	type row struct {
		model.DocumentChunk
		DocumentTitle string
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, documents.title AS document_title").
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("document_chunks.deleted_at IS NULL").
		Where("documents.deleted_at IS NULL").
		Order("document_chunks.document_id, document_chunks.chunk_index").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]*contract.ChunkWithDocument, len(rows))
	for i, rec := range rows {
		results[i] = &contract.ChunkWithDocument{
			Chunk:         r.mapper.ChunkToEntity(&rec.DocumentChunk),
			DocumentTitle: rec.DocumentTitle,
		}
	}
	return results, nil
}
