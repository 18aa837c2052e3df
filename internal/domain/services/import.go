package services

import (
	"context"
	"io"
	"time"

	"elog/internal/domain/models"
)

// ImportService drives third-party import: origin-id de-duplication,
// strict origin-id link resolution, attachment creation and entry creation
// in one transaction.
type ImportService interface {
	// Import creates a local entry from an external one, returning the
	// new entry id
	Import(ctx context.Context, author models.Person, req *ImportEntryRequest, attachments []AttachmentUpload) (string, error)
}

// ImportEntryRequest represents an external entry to import. Supersede and
// reference links are expressed as origin ids and resolved strictly: any
// unresolvable origin id fails the whole import. OriginID is optional; an
// import without one is never de-duplicated and can never be linked to.
type ImportEntryRequest struct {
	OriginID *string `json:"origin_id,omitempty"`

	Logbooks   []string        `json:"logbooks"`
	Title      string          `json:"title"`
	Text       string          `json:"text"`
	Tags       []string        `json:"tags,omitempty"`
	Summarizes *models.Summary `json:"summarizes,omitempty"`
	EventAt    *time.Time      `json:"event_at,omitempty"`

	SupersedeOfOriginID  *string  `json:"supersede_of_origin_id,omitempty"`
	ReferencesByOriginID []string `json:"references_by_origin_id,omitempty"`
}

// AttachmentUpload is a pending attachment stream accompanying an import
// or an upload request.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}
