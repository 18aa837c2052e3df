package repositories

import (
	"context"

	"elog/internal/domain/models"
)

// LogbookRepository defines data access operations for logbooks and their
// shifts and tags.
type LogbookRepository interface {
	// Create persists a new logbook
	Create(ctx context.Context, logbook *models.Logbook) error

	// GetByID retrieves a logbook with its shifts and tags
	GetByID(ctx context.Context, id string) (*models.Logbook, error)

	// Exists reports whether a logbook with the given id exists
	Exists(ctx context.Context, id string) (bool, error)

	// List returns all logbooks
	List(ctx context.Context) ([]models.Logbook, error)

	// AddShift appends a shift to a logbook
	AddShift(ctx context.Context, logbookID string, shift *models.Shift) error

	// AddTag appends a tag to a logbook
	AddTag(ctx context.Context, logbookID string, tag *models.Tag) error

	// TagExistsInLogbooks reports whether the tag id is declared by at
	// least one of the given logbooks
	TagExistsInLogbooks(ctx context.Context, tagID string, logbookIDs []string) (bool, error)
}
