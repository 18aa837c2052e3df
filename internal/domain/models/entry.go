package models

import (
	"time"
)

// Summary marks an entry as the summary of one shift on one date.
// A summary entry belongs to exactly one logbook, and that logbook must
// declare the referenced shift.
type Summary struct {
	ShiftID string    `json:"shift_id" db:"summarize_shift_id"`
	Date    time.Time `json:"date" db:"summarize_date"`
}

// Entry is a single logbook record. Graph edges (supersession chain,
// follow-up tree, free references) are stored as id adjacency lists, never
// as embedded entries; all traversal is query-driven.
type Entry struct {
	ID          string   `json:"id" db:"id"`
	Logbooks    []string `json:"logbooks" db:"logbook_ids"`
	Title       string   `json:"title" db:"title"`
	Text        string   `json:"text" db:"body"`
	Tags        []string `json:"tags" db:"tag_ids"`
	Attachments []string `json:"attachments" db:"attachment_ids"`

	// SupersededBy is set at most once; nil while the entry is the head of
	// its supersession chain.
	SupersededBy *string `json:"superseded_by,omitempty" db:"superseded_by"`
	// FollowUps is append-only.
	FollowUps []string `json:"follow_ups" db:"follow_up_ids"`
	// References lists entry ids the body links to. Rewritten when a
	// referenced entry is superseded.
	References []string `json:"references" db:"reference_ids"`

	Summarizes *Summary `json:"summarizes,omitempty"`
	// OriginID is the external system's identifier, unique when present.
	OriginID *string `json:"origin_id,omitempty" db:"origin_id"`

	LoggedAt time.Time `json:"logged_at" db:"logged_at"`
	// EventAt defaults to LoggedAt at creation and is never zero afterwards.
	EventAt  time.Time `json:"event_at" db:"event_at"`
	LoggedBy Person    `json:"logged_by"`
}

// Superseded reports whether this entry has been replaced by a newer version.
func (e *Entry) Superseded() bool {
	return e.SupersededBy != nil
}

// EntrySummary is the compact read model returned by searches and by
// reference/referenced-by resolution.
type EntrySummary struct {
	ID          string       `json:"id"`
	Logbooks    []string     `json:"logbooks"`
	Title       string       `json:"title"`
	Tags        []string     `json:"tags"`
	Attachments []Attachment `json:"attachments"`
	LoggedAt    time.Time    `json:"logged_at"`
	EventAt     time.Time    `json:"event_at"`
	LoggedBy    Person       `json:"logged_by"`
	// Shifts holds every shift whose time-of-day window contains EventAt,
	// one candidate per logbook the entry belongs to.
	Shifts []Shift `json:"shifts,omitempty"`
}

// EntryView is the full read model for a single entry, with each optional
// inclusion populated only when requested.
type EntryView struct {
	Entry

	AttachmentInfo []Attachment `json:"attachment_info,omitempty"`
	// Shifts is always computed, independent of the inclusion flags.
	Shifts []Shift `json:"shifts,omitempty"`

	FollowUpViews []EntryView    `json:"follow_up_views,omitempty"`
	FollowingUp   *EntrySummary  `json:"following_up,omitempty"`
	History       []EntrySummary `json:"history,omitempty"`
	ReferenceInfo []EntrySummary `json:"reference_info,omitempty"`
	ReferencedBy  []EntrySummary `json:"referenced_by,omitempty"`
}
