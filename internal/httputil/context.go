package httputil

import (
	"context"
	"net/http"

	"elog/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const personKey contextKey = "person"

// WithPerson adds the authenticated person to the request context
func WithPerson(r *http.Request, person models.Person) *http.Request {
	ctx := context.WithValue(r.Context(), personKey, person)
	return r.WithContext(ctx)
}

// GetPerson retrieves the authenticated person from the context. The
// second return value is false when no auth middleware ran.
func GetPerson(r *http.Request) (models.Person, bool) {
	person, ok := r.Context().Value(personKey).(models.Person)
	return person, ok
}
