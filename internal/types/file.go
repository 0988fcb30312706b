package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	FileStatusUploading  = "uploading"
	FileStatusUploaded   = "uploaded"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
)

// ExtractedTextPreviewLimit bounds how much extracted text is persisted on the
// file row; full text lives only as indexed chunks.
const ExtractedTextPreviewLimit = 5000

type File struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_file_user_recency,priority:1" json:"user_id"`
	ChatID          *uuid.UUID     `gorm:"type:uuid;index:idx_file_chat_recency,priority:1" json:"chat_id,omitempty"`
	FileName        string         `gorm:"column:file_name;not null" json:"file_name"`
	FileType        string         `gorm:"column:file_type;not null" json:"file_type"`
	FileSize        int64          `gorm:"column:file_size" json:"file_size"`
	StorageURL      string         `gorm:"column:storage_url;not null" json:"storage_url"`
	StorageKey      string         `gorm:"column:storage_key;not null" json:"storage_key"`
	Status          string         `gorm:"column:status;not null;default:'uploading'" json:"status"`
	ExtractedText   string         `gorm:"column:extracted_text" json:"extracted_text,omitempty"`
	VectorNamespace string         `gorm:"column:vector_namespace" json:"vector_namespace,omitempty"`
	ChunkCount      int            `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	Metadata        datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	Error           string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index:idx_file_user_recency,priority:2,sort:desc;index:idx_file_chat_recency,priority:2,sort:desc" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (File) TableName() string { return "file" }
