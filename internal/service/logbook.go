package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/domain/repositories"
	"elog/internal/domain/services"
)

// logbookService implements the LogbookService interface
type logbookService struct {
	logbookRepo repositories.LogbookRepository
	logger      *slog.Logger
}

// NewLogbookService creates a new logbook service
func NewLogbookService(logbookRepo repositories.LogbookRepository, logger *slog.Logger) services.LogbookService {
	return &logbookService{
		logbookRepo: logbookRepo,
		logger:      logger,
	}
}

// CreateLogbook creates a new logbook
func (s *logbookService) CreateLogbook(ctx context.Context, req *services.CreateLogbookRequest) (*models.Logbook, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 256)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	logbook := &models.Logbook{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if err := s.logbookRepo.Create(ctx, logbook); err != nil {
		return nil, err
	}

	s.logger.Info("logbook created", "logbook_id", logbook.ID, "name", logbook.Name)
	return logbook, nil
}

// GetLogbook retrieves a logbook with its shifts and tags
func (s *logbookService) GetLogbook(ctx context.Context, id string) (*models.Logbook, error) {
	return s.logbookRepo.GetByID(ctx, id)
}

// ListLogbooks returns all logbooks
func (s *logbookService) ListLogbooks(ctx context.Context) ([]models.Logbook, error) {
	return s.logbookRepo.List(ctx)
}

// AddShift declares a new shift window on a logbook
func (s *logbookService) AddShift(ctx context.Context, logbookID string, req *services.AddShiftRequest) (*models.Shift, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.From, validation.Required, validation.Date("15:04")),
		validation.Field(&req.To, validation.Required, validation.Date("15:04")),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	// From later than To declares an overnight window; only an equal pair
	// is empty and rejected.
	if req.From == req.To {
		return nil, fmt.Errorf("%w: shift window must not be empty", domain.ErrValidation)
	}

	if _, err := s.logbookRepo.GetByID(ctx, logbookID); err != nil {
		return nil, err
	}

	shift := &models.Shift{
		ID:   uuid.NewString(),
		Name: req.Name,
		From: req.From,
		To:   req.To,
	}
	if err := s.logbookRepo.AddShift(ctx, logbookID, shift); err != nil {
		return nil, err
	}

	s.logger.Info("shift added", "logbook_id", logbookID, "shift_id", shift.ID,
		"from", shift.From, "to", shift.To)
	return shift, nil
}

// AddTag declares a new tag on a logbook
func (s *logbookService) AddTag(ctx context.Context, logbookID string, req *services.AddTagRequest) (*models.Tag, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 128)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.logbookRepo.GetByID(ctx, logbookID); err != nil {
		return nil, err
	}

	tag := &models.Tag{
		ID:   uuid.NewString(),
		Name: req.Name,
	}
	if err := s.logbookRepo.AddTag(ctx, logbookID, tag); err != nil {
		return nil, err
	}

	s.logger.Info("tag added", "logbook_id", logbookID, "tag_id", tag.ID, "name", tag.Name)
	return tag, nil
}

// Exists reports whether the logbook id resolves
func (s *logbookService) Exists(ctx context.Context, id string) (bool, error) {
	return s.logbookRepo.Exists(ctx, id)
}

// TagExistsInLogbooks reports whether the tag is declared by any of the
// given logbooks
func (s *logbookService) TagExistsInLogbooks(ctx context.Context, tagID string, logbookIDs []string) (bool, error) {
	return s.logbookRepo.TagExistsInLogbooks(ctx, tagID, logbookIDs)
}

// ShiftForLocalTime returns the shift whose window contains the local time
// of day of t, or nil when no window matches. A miss is not an error.
func (s *logbookService) ShiftForLocalTime(ctx context.Context, logbookID string, t time.Time) (*models.Shift, error) {
	logbook, err := s.logbookRepo.GetByID(ctx, logbookID)
	if err != nil {
		return nil, err
	}

	for i := range logbook.Shifts {
		ok, err := logbook.Shifts[i].Contains(t)
		if err != nil {
			s.logger.Warn("skipping shift with malformed window",
				"logbook_id", logbookID, "shift_id", logbook.Shifts[i].ID, "error", err)
			continue
		}
		if ok {
			return &logbook.Shifts[i], nil
		}
	}
	return nil, nil
}
