package services

import (
	"context"
	"time"

	"elog/internal/domain/models"
)

// LogbookService resolves logbooks, tags and shifts for the entry engine
// and exposes the minimal logbook administration the API needs.
type LogbookService interface {
	// CreateLogbook creates a new logbook
	CreateLogbook(ctx context.Context, req *CreateLogbookRequest) (*models.Logbook, error)

	// GetLogbook retrieves a logbook with its shifts and tags
	GetLogbook(ctx context.Context, id string) (*models.Logbook, error)

	// ListLogbooks returns all logbooks
	ListLogbooks(ctx context.Context) ([]models.Logbook, error)

	// AddShift declares a new shift window on a logbook
	AddShift(ctx context.Context, logbookID string, req *AddShiftRequest) (*models.Shift, error)

	// AddTag declares a new tag on a logbook
	AddTag(ctx context.Context, logbookID string, req *AddTagRequest) (*models.Tag, error)

	// Exists reports whether the logbook id resolves
	Exists(ctx context.Context, id string) (bool, error)

	// TagExistsInLogbooks reports whether the tag is declared by any of
	// the given logbooks
	TagExistsInLogbooks(ctx context.Context, tagID string, logbookIDs []string) (bool, error)

	// ShiftForLocalTime returns the logbook's shift whose window contains
	// the local time of day of t, or nil when no window matches
	ShiftForLocalTime(ctx context.Context, logbookID string, t time.Time) (*models.Shift, error)
}

// CreateLogbookRequest represents a logbook creation request
type CreateLogbookRequest struct {
	Name string `json:"name"`
}

// AddShiftRequest represents a shift declaration
type AddShiftRequest struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// AddTagRequest represents a tag declaration
type AddTagRequest struct {
	Name string `json:"name"`
}
