package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
	"elog/internal/domain/services"
)

// maxAttachmentSize caps a single upload at 50MB.
const maxAttachmentSize = 50 << 20

// attachmentService implements the AttachmentService interface
type attachmentService struct {
	attachmentRepo repositories.AttachmentRepository
	logger         *slog.Logger
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(attachmentRepo repositories.AttachmentRepository, logger *slog.Logger) services.AttachmentService {
	return &attachmentService{
		attachmentRepo: attachmentRepo,
		logger:         logger,
	}
}

// CreateFromStream stores a new attachment and returns its id
func (s *attachmentService) CreateFromStream(ctx context.Context, upload services.AttachmentUpload) (string, error) {
	if upload.FileName == "" {
		return "", fmt.Errorf("%w: attachment file name is required", domain.ErrValidation)
	}

	payload, err := io.ReadAll(io.LimitReader(upload.Content, maxAttachmentSize+1))
	if err != nil {
		return "", fmt.Errorf("read attachment stream: %w", err)
	}
	if len(payload) > maxAttachmentSize {
		return "", fmt.Errorf("%w: attachment exceeds size limit", domain.ErrValidation)
	}

	attachment := &models.Attachment{
		ID:          uuid.NewString(),
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		InUse:       false,
		CreatedAt:   time.Now(),
	}
	if err := s.attachmentRepo.Create(ctx, attachment, payload); err != nil {
		return "", err
	}

	s.logger.Info("attachment created",
		"attachment_id", attachment.ID,
		"file_name", attachment.FileName,
		"size", len(payload),
	)
	return attachment.ID, nil
}

// GetAttachment retrieves attachment metadata
func (s *attachmentService) GetAttachment(ctx context.Context, id string) (*models.Attachment, error) {
	return s.attachmentRepo.GetByID(ctx, id)
}

// GetPayload retrieves the stored file content
func (s *attachmentService) GetPayload(ctx context.Context, id string) ([]byte, error) {
	return s.attachmentRepo.GetPayload(ctx, id)
}

// Exists reports whether the attachment id resolves
func (s *attachmentService) Exists(ctx context.Context, id string) (bool, error) {
	return s.attachmentRepo.Exists(ctx, id)
}

// MarkInUse flips the in-use flag; the flag is monotonic so a concurrent
// mark from another entry is harmless.
func (s *attachmentService) MarkInUse(ctx context.Context, id string) error {
	return s.attachmentRepo.MarkInUse(ctx, id)
}
