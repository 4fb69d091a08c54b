package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gopherai-kb/internal/model"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// Add attaches tags to a document. Pairs that already exist are left untouched.
func (r *TagRepository) Add(ctx context.Context, documentID uint, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]model.Tag, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, model.Tag{DocumentID: documentID, Tag: tag})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("add tags failed: %w", err)
	}
	return nil
}

func (r *TagRepository) Remove(ctx context.Context, documentID uint, tag string) error {
	if err := r.db.WithContext(ctx).Where("document_id = ? AND tag = ?", documentID, tag).Delete(&model.Tag{}).Error; err != nil {
		return fmt.Errorf("remove tag failed: %w", err)
	}
	return nil
}

func (r *TagRepository) ListByDocumentID(ctx context.Context, documentID uint) ([]string, error) {
	var tags []string
	if err := r.db.WithContext(ctx).Model(&model.Tag{}).Where("document_id = ?", documentID).Order("tag ASC").Pluck("tag", &tags).Error; err != nil {
		return nil, fmt.Errorf("list tags failed: %w", err)
	}
	return tags, nil
}

// ListByDocumentIDs groups tags by document id.
func (r *TagRepository) ListByDocumentIDs(ctx context.Context, documentIDs []uint) (map[uint][]string, error) {
	out := make(map[uint][]string, len(documentIDs))
	if len(documentIDs) == 0 {
		return out, nil
	}
	var rows []model.Tag
	if err := r.db.WithContext(ctx).Where("document_id IN ?", documentIDs).Order("tag ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tags by documents failed: %w", err)
	}
	for _, row := range rows {
		out[row.DocumentID] = append(out[row.DocumentID], row.Tag)
	}
	return out, nil
}
