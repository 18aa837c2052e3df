package models

import (
	"fmt"
	"time"
)

// Shift is a named time-of-day window within a logbook. From and To are
// local times in "HH:MM" form; the window is half-open, [From, To), and
// wraps past midnight when To is earlier than From (an overnight shift
// like 23:00-07:00 covers 23:00-24:00 plus 00:00-07:00).
type Shift struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	From string `json:"from" db:"from_time"`
	To   string `json:"to" db:"to_time"`
}

// Contains reports whether the shift window covers the given local time of day.
func (s Shift) Contains(t time.Time) (bool, error) {
	from, err := parseTimeOfDay(s.From)
	if err != nil {
		return false, fmt.Errorf("shift %s: bad from time: %w", s.ID, err)
	}
	to, err := parseTimeOfDay(s.To)
	if err != nil {
		return false, fmt.Errorf("shift %s: bad to time: %w", s.ID, err)
	}
	minute := t.Hour()*60 + t.Minute()
	if from > to {
		return minute >= from || minute < to, nil
	}
	return minute >= from && minute < to, nil
}

// parseTimeOfDay converts "HH:MM" into minutes since midnight.
func parseTimeOfDay(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Tag is a free-form label scoped to a logbook.
type Tag struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Logbook groups entries and owns its shifts and tags.
type Logbook struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Shifts    []Shift   `json:"shifts"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ShiftByID returns the logbook's shift with the given id, or nil.
func (l *Logbook) ShiftByID(id string) *Shift {
	for i := range l.Shifts {
		if l.Shifts[i].ID == id {
			return &l.Shifts[i]
		}
	}
	return nil
}
