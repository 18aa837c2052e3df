package handler

import (
	"errors"
	"net/http"

	"elog/internal/domain"
	"elog/internal/domain/models"
	"elog/internal/httputil"
)

// handleError converts domain errors to HTTP responses. Typed domain
// errors carry their own status and stable code; anything else falls back
// to the category sentinels.
func handleError(w http.ResponseWriter, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondErrorWithCode(w, httpErr.StatusCode(), httpErr.Error(), string(domain.CodeOf(err)))
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requirePerson pulls the authenticated identity out of the context.
// Responds 401 and returns false when the auth middleware did not run.
func requirePerson(w http.ResponseWriter, r *http.Request) (models.Person, bool) {
	person, found := httputil.GetPerson(r)
	if !found {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return models.Person{}, false
	}
	return person, true
}
