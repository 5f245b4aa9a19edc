package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the outcome of one plaintiff's document
type DocumentStatus string

const (
	DocumentStatusSuccess DocumentStatus = "success"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// SetStatus represents the aggregate outcome of a generation run
type SetStatus string

const (
	SetStatusCompleted SetStatus = "completed"
	SetStatusPartial   SetStatus = "partial"
	SetStatusFailed    SetStatus = "failed"
)

// GeneratedDocument is one plaintiff's artifact within a set
type GeneratedDocument struct {
	PlaintiffID   uuid.UUID      `json:"plaintiff_id"`
	PlaintiffName string         `json:"plaintiff_name"`
	Filename      string         `json:"filename"`
	FilePath      string         `json:"file_path"`
	Size          int64          `json:"size"`
	Status        DocumentStatus `json:"status"`
	Error         *string        `json:"error,omitempty"`
}

// GeneratedDocuments represents the per-plaintiff items of a set
type GeneratedDocuments []GeneratedDocument

// Value implements driver.Valuer for JSONB
func (g GeneratedDocuments) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// Scan implements sql.Scanner for JSONB
func (g *GeneratedDocuments) Scan(value interface{}) error {
	if value == nil {
		*g = make(GeneratedDocuments, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*g = make(GeneratedDocuments, 0)
		return nil
	}

	if len(bytes) == 0 {
		*g = make(GeneratedDocuments, 0)
		return nil
	}

	return json.Unmarshal(bytes, g)
}

// GeneratedDocumentSet is the immutable record of one fan-out run.
// Regenerating a case produces a new set; artifacts overwrite at the
// filename level.
type GeneratedDocumentSet struct {
	ID        uuid.UUID          `json:"id"`
	CaseID    uuid.UUID          `json:"case_id"`
	DocType   string             `json:"doc_type"`
	Status    SetStatus          `json:"status"`
	Documents GeneratedDocuments `json:"documents"`
	CreatedAt time.Time          `json:"created_at"`
}
