package repositories

import (
	"context"
	"time"

	"elog/internal/domain/models"
)

// SearchFilter narrows an entry search. Either the From/To bounds or the
// Anchor window may be set, not both; when Anchor is set, ContextSize
// entries at or before the anchor and Limit entries after it are returned.
type SearchFilter struct {
	Logbooks []string
	Tags     []string
	// Text is matched case-insensitively against title and body.
	Text string

	From *time.Time
	To   *time.Time

	Anchor      *time.Time
	ContextSize int

	Limit int
	// SortByEventAt orders by event time instead of logged time.
	SortByEventAt bool
}

// EntryRepository defines data access operations for entries.
// All reverse-edge traversal (history walk, referenced-by, following-up)
// is query-driven against the stored adjacency lists.
type EntryRepository interface {
	// Create persists a new entry
	Create(ctx context.Context, entry *models.Entry) error

	// GetByID retrieves an entry by ID
	GetByID(ctx context.Context, id string) (*models.Entry, error)

	// Exists reports whether an entry with the given id exists
	Exists(ctx context.Context, id string) (bool, error)

	// GetByOriginID retrieves an entry by its import origin id
	GetByOriginID(ctx context.Context, originID string) (*models.Entry, error)

	// ExistsByOriginID reports whether any entry carries the origin id
	ExistsByOriginID(ctx context.Context, originID string) (bool, error)

	// SetSupersededBy sets the forward supersession pointer on an entry
	SetSupersededBy(ctx context.Context, id, supersededBy string) error

	// AppendFollowUp appends a child id to an entry's follow-up list
	AppendFollowUp(ctx context.Context, id, followUpID string) error

	// UpdateTextAndReferences rewrites an entry's body and reference list,
	// used by the supersede cascade
	UpdateTextAndReferences(ctx context.Context, id, text string, references []string) error

	// FindReferencing returns the non-superseded entries whose reference
	// list contains the given id
	FindReferencing(ctx context.Context, id string) ([]models.Entry, error)

	// FindSuperseding returns the entry X with X.SupersededBy == id, or
	// nil when the given entry is the oldest of its chain
	FindSuperseding(ctx context.Context, id string) (*models.Entry, error)

	// FindFollowingUp returns the non-superseded entry whose follow-up
	// list contains the given id, or nil
	FindFollowingUp(ctx context.Context, id string) (*models.Entry, error)

	// Search returns entries matching the filter, newest first, id as
	// tie-break
	Search(ctx context.Context, filter *SearchFilter) ([]models.Entry, error)
}
