package models

import "time"

// Attachment is uploaded file metadata. InUse flips to true on first
// association with an entry and never flips back.
type Attachment struct {
	ID          string    `json:"id" db:"id"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	InUse       bool      `json:"in_use" db:"in_use"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
