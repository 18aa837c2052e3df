package services

import (
	"context"

	"elog/internal/domain/models"
)

// AttachmentService is the attachment registry: existence checks, the
// monotonic in-use flag and stream-based creation.
type AttachmentService interface {
	// CreateFromStream stores a new attachment and returns its id
	CreateFromStream(ctx context.Context, upload AttachmentUpload) (string, error)

	// GetAttachment retrieves attachment metadata
	GetAttachment(ctx context.Context, id string) (*models.Attachment, error)

	// GetPayload retrieves the stored file content
	GetPayload(ctx context.Context, id string) ([]byte, error)

	// Exists reports whether the attachment id resolves
	Exists(ctx context.Context, id string) (bool, error)

	// MarkInUse flips the in-use flag; true-only, never reset
	MarkInUse(ctx context.Context, id string) error
}
