package service

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
	"elog/internal/domain/services"
)

// importService implements the ImportService interface. Unlike the lenient
// free-form reference filtering of entry creation, every origin-id link of
// an import must resolve or the whole import fails.
type importService struct {
	entryRepo     repositories.EntryRepository
	entrySvc      services.EntryService
	attachmentSvc services.AttachmentService
	txManager     repositories.TransactionManager
	logger        *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(
	entryRepo repositories.EntryRepository,
	entrySvc services.EntryService,
	attachmentSvc services.AttachmentService,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.ImportService {
	return &importService{
		entryRepo:     entryRepo,
		entrySvc:      entrySvc,
		attachmentSvc: attachmentSvc,
		txManager:     txManager,
		logger:        logger,
	}
}

// Import creates a local entry from an external one. Attachment creation,
// entry creation and the optional supersede link commit as one
// transaction; a retried import of the same origin id fails the duplicate
// check and leaves no trace.
func (s *importService) Import(ctx context.Context, author models.Person, req *services.ImportEntryRequest, attachments []services.AttachmentUpload) (string, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.OriginID, validation.NilOrNotEmpty),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var newID string
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if req.OriginID != nil {
			exists, err := s.entryRepo.ExistsByOriginID(txCtx, *req.OriginID)
			if err != nil {
				return err
			}
			if exists {
				return domain.Errorf(domain.CodeDuplicateOriginID,
					"entry with origin id %s already imported", *req.OriginID)
			}
		}

		// Resolve the supersede target up front so a bad link fails the
		// import before anything is created.
		var target *models.Entry
		if req.SupersedeOfOriginID != nil {
			resolved, err := s.entryRepo.GetByOriginID(txCtx, *req.SupersedeOfOriginID)
			if err != nil {
				return err
			}
			target = resolved
		}

		attachmentIDs := make([]string, 0, len(attachments))
		for _, upload := range attachments {
			id, err := s.attachmentSvc.CreateFromStream(txCtx, upload)
			if err != nil {
				return err
			}
			attachmentIDs = append(attachmentIDs, id)
		}

		references := make([]string, 0, len(req.ReferencesByOriginID))
		for _, originID := range req.ReferencesByOriginID {
			ref, err := s.entryRepo.GetByOriginID(txCtx, originID)
			if err != nil {
				return err
			}
			references = append(references, ref.ID)
		}

		id, err := s.entrySvc.Create(txCtx, author, &services.CreateEntryRequest{
			Logbooks:    req.Logbooks,
			Title:       req.Title,
			Text:        &req.Text,
			Tags:        req.Tags,
			Attachments: attachmentIDs,
			References:  references,
			Summarizes:  req.Summarizes,
			EventAt:     req.EventAt,
			OriginID:    req.OriginID,
		})
		if err != nil {
			return err
		}
		newID = id

		if target != nil {
			return s.entrySvc.LinkSupersede(txCtx, target.ID, newID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if req.OriginID != nil {
		s.logger.Info("entry imported", "entry_id", newID, "origin_id", *req.OriginID)
	} else {
		s.logger.Info("entry imported", "entry_id", newID)
	}
	return newID, nil
}
