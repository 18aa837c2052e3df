package repositories

import (
	"context"

	"elog/internal/domain/models"
)

// AttachmentRepository defines data access operations for attachment
// metadata and payloads.
type AttachmentRepository interface {
	// Create persists attachment metadata plus payload
	Create(ctx context.Context, attachment *models.Attachment, payload []byte) error

	// GetByID retrieves attachment metadata
	GetByID(ctx context.Context, id string) (*models.Attachment, error)

	// GetPayload retrieves the stored file content
	GetPayload(ctx context.Context, id string) ([]byte, error)

	// Exists reports whether an attachment with the given id exists
	Exists(ctx context.Context, id string) (bool, error)

	// MarkInUse flips the in-use flag to true. The flag is monotonic, so
	// concurrent marks are harmless.
	MarkInUse(ctx context.Context, id string) error
}
