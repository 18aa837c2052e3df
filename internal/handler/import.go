package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"elog/internal/domain/services"
	"elog/internal/httputil"
)

// ImportHandler handles synchronous import HTTP requests. Asynchronous
// imports arrive through the message consumer instead.
type ImportHandler struct {
	importService services.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService services.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

type importCreatedResponse struct {
	ID string `json:"id"`
}

// ImportEntry imports an external entry. A multipart request carries the
// entry JSON in the 'entry' part with any number of 'files' parts; a
// plain JSON body imports without attachments.
// POST /api/import
func (h *ImportHandler) ImportEntry(w http.ResponseWriter, r *http.Request) {
	person, ok := requirePerson(w, r)
	if !ok {
		return
	}

	var req services.ImportEntryRequest
	var uploads []services.AttachmentUpload
	var closers []interface{ Close() error }
	defer func() {
		for _, closer := range closers {
			closer.Close()
		}
	}()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		if err := json.Unmarshal([]byte(r.FormValue("entry")), &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid 'entry' part")
			return
		}

		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				httputil.RespondError(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			closers = append(closers, file)
			uploads = append(uploads, services.AttachmentUpload{
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Content:     file,
			})
		}
	} else {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	id, err := h.importService.Import(r.Context(), person, &req, uploads)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, importCreatedResponse{ID: id})
}
