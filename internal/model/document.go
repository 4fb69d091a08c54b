package model

import "time"

// File types recorded on a document, derived from the uploaded MIME type.
const (
	FileTypePDF   = "PDF"
	FileTypeExcel = "Excel"
	FileTypeCSV   = "CSV"
	FileTypeText  = "Text"
	FileTypeWord  = "Word"
)

type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	FileType    string    `gorm:"size:16;not null" json:"file_type"`
	MimeType    string    `gorm:"size:128;not null" json:"mime_type"`
	Size        int64     `gorm:"not null" json:"size"`
	PageCount   int       `gorm:"not null;default:0" json:"page_count"`
	StoragePath *string   `gorm:"size:512" json:"storage_path,omitempty"` // nil when the original was not stored
	Summary     *string   `gorm:"type:text" json:"summary,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
