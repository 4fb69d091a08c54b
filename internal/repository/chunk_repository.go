package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gopherai-kb/internal/model"
)

const chunkColumnsWithoutEmbedding = "id, document_id, content, page_number, position, created_at"

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.Chunk, batchSize int) error {
	if len(chunks) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&chunks, batchSize).Error; err != nil {
		return fmt.Errorf("create chunks batch failed: %w", err)
	}
	return nil
}

// SearchKeyword returns chunks whose content contains query, case-insensitively.
// LIKE wildcards in query are matched literally.
func (r *ChunkRepository) SearchKeyword(ctx context.Context, query string, limit int) ([]model.Chunk, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var chunks []model.Chunk
	err := r.db.WithContext(ctx).
		Select(chunkColumnsWithoutEmbedding).
		Where("LOWER(content) LIKE ? ESCAPE '!'", pattern).
		Order("id ASC").
		Limit(limit).
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("search chunks by keyword failed: %w", err)
	}
	return chunks, nil
}

// ScanEmbeddings walks every stored chunk embedding in id order, batchSize rows at a time.
// Content is not loaded.
func (r *ChunkRepository) ScanEmbeddings(ctx context.Context, batchSize int, fn func([]model.Chunk) error) error {
	var batch []model.Chunk
	result := r.db.WithContext(ctx).
		Select("id, document_id, page_number, position, embedding").
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		})
	if result.Error != nil {
		return fmt.Errorf("scan chunk embeddings failed: %w", result.Error)
	}
	return nil
}

func (r *ChunkRepository) ListByIDs(ctx context.Context, ids []uint) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []model.Chunk
	if err := r.db.WithContext(ctx).Select(chunkColumnsWithoutEmbedding).Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list chunks by ids failed: %w", err)
	}
	return chunks, nil
}

// ListLeading returns the first limit chunks of a document in reading order.
func (r *ChunkRepository) ListLeading(ctx context.Context, documentID uint, limit int) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := r.db.WithContext(ctx).
		Select(chunkColumnsWithoutEmbedding).
		Where("document_id = ?", documentID).
		Order("page_number ASC").
		Order("position ASC").
		Limit(limit).
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("list leading chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Chunk{}).Where("document_id = ?", documentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
