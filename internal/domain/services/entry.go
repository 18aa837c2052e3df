package services

import (
	"context"
	"time"

	"elog/internal/domain/models"
)

// EntryService is the entry graph engine: creation, supersession,
// follow-ups, reads and search.
type EntryService interface {
	// Create validates and persists a new entry, returning its id
	Create(ctx context.Context, author models.Person, req *CreateEntryRequest) (string, error)

	// GetFull retrieves an entry with the requested inclusions resolved
	GetFull(ctx context.Context, id string, include IncludeOptions) (*models.EntryView, error)

	// Supersede replaces an entry with a new version, transferring its
	// follow-ups and rewriting every reference to it
	Supersede(ctx context.Context, author models.Person, entryID string, req *CreateEntryRequest) (string, error)

	// FollowUp creates a child entry under the given root
	FollowUp(ctx context.Context, author models.Person, rootID string, req *CreateEntryRequest) (string, error)

	// LinkSupersede points an existing target at an already-created new
	// version, running the same reference cascade as Supersede. An
	// identical already-applied link is tolerated as success.
	LinkSupersede(ctx context.Context, targetID, newID string) error

	// Search returns entry summaries matching the request, newest first
	Search(ctx context.Context, req *SearchEntriesRequest) ([]models.EntrySummary, error)
}

// CreateEntryRequest represents an entry creation request. Text is a
// pointer so a missing body can be told apart from a deliberately empty
// one: empty is legal, absent is not.
type CreateEntryRequest struct {
	Logbooks    []string        `json:"logbooks"`
	Title       string          `json:"title"`
	Text        *string         `json:"text"`
	Tags        []string        `json:"tags,omitempty"`
	Attachments []string        `json:"attachments,omitempty"`
	References  []string        `json:"references,omitempty"`
	Summarizes  *models.Summary `json:"summarizes,omitempty"`
	EventAt     *time.Time      `json:"event_at,omitempty"`
	// OriginID is set by the import orchestrator only, never from the API.
	OriginID *string `json:"-"`
}

// IncludeOptions toggles the optional inclusions of a full entry read.
// Each flag is independent; shift resolution always happens.
type IncludeOptions struct {
	FollowUps    bool
	FollowingUp  bool
	History      bool
	References   bool
	ReferencedBy bool
}

// SearchEntriesRequest represents an entry search request
type SearchEntriesRequest struct {
	Logbooks []string `json:"logbooks,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Text     string   `json:"text,omitempty"`

	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`

	// Anchor centers a context window: ContextSize entries at or before
	// the anchor plus Limit entries after it.
	Anchor      *time.Time `json:"anchor,omitempty"`
	ContextSize int        `json:"context_size,omitempty"`

	Limit         int  `json:"limit,omitempty"`
	SortByEventAt bool `json:"sort_by_event_at,omitempty"`
}
