package model

import "time"

// Tag labels a document. (DocumentID, Tag) is unique so adding twice is a no-op.
type Tag struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;uniqueIndex:idx_document_tag" json:"document_id"`
	Tag        string    `gorm:"size:64;not null;uniqueIndex:idx_document_tag" json:"tag"`
	CreatedAt  time.Time `json:"created_at"`
}
