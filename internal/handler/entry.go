package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"elog/internal/domain/services"
	"elog/internal/httputil"
)

// EntryHandler handles entry HTTP requests
type EntryHandler struct {
	entryService services.EntryService
	logger       *slog.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(entryService services.EntryService, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
		logger:       logger,
	}
}

type entryCreatedResponse struct {
	ID string `json:"id"`
}

// CreateEntry creates a new entry
// POST /api/entries
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	person, ok := requirePerson(w, r)
	if !ok {
		return
	}

	var req services.CreateEntryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.entryService.Create(r.Context(), person, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, entryCreatedResponse{ID: id})
}

// GetEntry retrieves a full entry view with optional inclusions
// GET /api/entries/{id}?follow_ups=true&history=true&...
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "entry ID is required")
		return
	}

	query := r.URL.Query()
	include := services.IncludeOptions{
		FollowUps:    query.Get("follow_ups") == "true",
		FollowingUp:  query.Get("following_up") == "true",
		History:      query.Get("history") == "true",
		References:   query.Get("references") == "true",
		ReferencedBy: query.Get("referenced_by") == "true",
	}

	view, err := h.entryService.GetFull(r.Context(), id, include)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, view)
}

// SupersedeEntry replaces an entry with a new version
// POST /api/entries/{id}/supersede
func (h *EntryHandler) SupersedeEntry(w http.ResponseWriter, r *http.Request) {
	person, ok := requirePerson(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "entry ID is required")
		return
	}

	var req services.CreateEntryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newID, err := h.entryService.Supersede(r.Context(), person, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, entryCreatedResponse{ID: newID})
}

// FollowUpEntry creates a follow-up under an entry
// POST /api/entries/{id}/follow-ups
func (h *EntryHandler) FollowUpEntry(w http.ResponseWriter, r *http.Request) {
	person, ok := requirePerson(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "entry ID is required")
		return
	}

	var req services.CreateEntryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newID, err := h.entryService.FollowUp(r.Context(), person, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, entryCreatedResponse{ID: newID})
}

// SearchEntries returns entry summaries matching the query
// GET /api/entries/search
func (h *EntryHandler) SearchEntries(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchQuery(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := h.entryService.Search(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, summaries)
}

func parseSearchQuery(r *http.Request) (*services.SearchEntriesRequest, error) {
	query := r.URL.Query()
	req := &services.SearchEntriesRequest{
		Logbooks:      splitList(query.Get("logbooks")),
		Tags:          splitList(query.Get("tags")),
		Text:          query.Get("text"),
		SortByEventAt: query.Get("sort_by_event_at") == "true",
	}

	var err error
	if req.From, err = parseTimeParam(query.Get("from")); err != nil {
		return nil, err
	}
	if req.To, err = parseTimeParam(query.Get("to")); err != nil {
		return nil, err
	}
	if req.Anchor, err = parseTimeParam(query.Get("anchor")); err != nil {
		return nil, err
	}
	if req.ContextSize, err = parseIntParam(query.Get("context_size")); err != nil {
		return nil, err
	}
	if req.Limit, err = parseIntParam(query.Get("limit")); err != nil {
		return nil, err
	}
	return req, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
