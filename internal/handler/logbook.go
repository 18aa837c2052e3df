package handler

import (
	"log/slog"
	"net/http"

	"elog/internal/domain/services"
	"elog/internal/httputil"
)

// LogbookHandler handles logbook HTTP requests
type LogbookHandler struct {
	logbookService services.LogbookService
	logger         *slog.Logger
}

// NewLogbookHandler creates a new logbook handler
func NewLogbookHandler(logbookService services.LogbookService, logger *slog.Logger) *LogbookHandler {
	return &LogbookHandler{
		logbookService: logbookService,
		logger:         logger,
	}
}

// CreateLogbook creates a new logbook
// POST /api/logbooks
func (h *LogbookHandler) CreateLogbook(w http.ResponseWriter, r *http.Request) {
	var req services.CreateLogbookRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	logbook, err := h.logbookService.CreateLogbook(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, logbook)
}

// ListLogbooks returns all logbooks
// GET /api/logbooks
func (h *LogbookHandler) ListLogbooks(w http.ResponseWriter, r *http.Request) {
	logbooks, err := h.logbookService.ListLogbooks(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, logbooks)
}

// GetLogbook retrieves a logbook with its shifts and tags
// GET /api/logbooks/{id}
func (h *LogbookHandler) GetLogbook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "logbook ID is required")
		return
	}

	logbook, err := h.logbookService.GetLogbook(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, logbook)
}

// AddShift declares a new shift window on a logbook
// POST /api/logbooks/{id}/shifts
func (h *LogbookHandler) AddShift(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "logbook ID is required")
		return
	}

	var req services.AddShiftRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shift, err := h.logbookService.AddShift(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, shift)
}

// AddTag declares a new tag on a logbook
// POST /api/logbooks/{id}/tags
func (h *LogbookHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "logbook ID is required")
		return
	}

	var req services.AddTagRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.logbookService.AddTag(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, tag)
}
