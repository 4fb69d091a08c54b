package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gopherai-kb/internal/model"
)

type CorpusSummaryRepository struct {
	db *gorm.DB
}

func NewCorpusSummaryRepository(db *gorm.DB) *CorpusSummaryRepository {
	return &CorpusSummaryRepository{db: db}
}

func (r *CorpusSummaryRepository) Get(ctx context.Context, summaryType string) (*model.CorpusSummary, error) {
	var summary model.CorpusSummary
	if err := r.db.WithContext(ctx).Where("summary_type = ?", summaryType).First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get corpus summary failed: %w", err)
	}
	return &summary, nil
}

// Replace swaps the stored summary of the same type for summary in one transaction.
func (r *CorpusSummaryRepository) Replace(ctx context.Context, summary *model.CorpusSummary) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("summary_type = ?", summary.SummaryType).Delete(&model.CorpusSummary{}).Error; err != nil {
			return err
		}
		summary.ID = 0
		return tx.Create(summary).Error
	})
	if err != nil {
		return fmt.Errorf("replace corpus summary failed: %w", err)
	}
	return nil
}
