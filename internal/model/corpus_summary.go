package model

import (
	"time"

	"gorm.io/datatypes"
)

const SummaryTypeExecutive = "executive"

type ImportantDate struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// CorpusSummary is the single AI-generated overview of the whole corpus.
// At most one row exists per SummaryType.
type CorpusSummary struct {
	ID               uint                               `gorm:"primaryKey" json:"id"`
	SummaryType      string                             `gorm:"size:32;not null;uniqueIndex" json:"summary_type"`
	ExecutiveSummary string                             `gorm:"type:text;not null" json:"executive_summary"`
	KeyInsights      datatypes.JSONSlice[string]        `json:"key_insights"`
	ActionItems      datatypes.JSONSlice[string]        `json:"action_items"`
	KeyThemes        datatypes.JSONSlice[string]        `json:"key_themes"`
	ImportantDates   datatypes.JSONSlice[ImportantDate] `json:"important_dates"`
	DocumentCount    int                                `gorm:"not null" json:"document_count"`
	SampledChunks    int                                `gorm:"not null" json:"sampled_chunks"`
	GeneratedAt      time.Time                          `json:"generated_at"`
}
