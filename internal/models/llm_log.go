package models

import (
	"time"

	"gorm.io/gorm"
)

// LLM call kinds.
const (
	LLMKindBreakComment     = "break_comment"
	LLMKindExecutiveSummary = "executive_summary"
)

// LLMLog records one narrative-insight call against the LLM.
type LLMLog struct {
	ID               string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	BatchID          string         `gorm:"type:varchar(26);index" json:"batch_id"`
	RecordID         string         `gorm:"type:varchar(26);index" json:"record_id"` // empty for summaries
	Kind             string         `gorm:"type:varchar(20);not null" json:"kind"`
	Model            string         `json:"model"`
	UserPrompt       string         `gorm:"type:text" json:"user_prompt"`
	AssistantContent string         `gorm:"type:text" json:"assistant_content"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	Duration         int64          `json:"duration"` // milliseconds
	Error            string         `gorm:"type:text" json:"error"`
	ExecutedAt       time.Time      `gorm:"not null;index" json:"executed_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LLMLog) TableName() string {
	return "llm_logs"
}
