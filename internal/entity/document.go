package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document represents an ingested source file for data transfer between layers.
type Document struct {
	ID           uuid.UUID  `json:"id"`
	SourcePath   string     `json:"source_path"`
	Filename     string     `json:"filename"`
	FileExt      string     `json:"file_ext"`
	FileSize     int64      `json:"file_size"`
	ContentHash  []byte     `json:"content_hash"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	IngestedAt   time.Time  `json:"ingested_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}
