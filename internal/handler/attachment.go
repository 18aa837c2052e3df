package handler

import (
	"log/slog"
	"net/http"

	"elog/internal/domain/services"
	"elog/internal/httputil"
)

// maxUploadSize caps multipart uploads at the same 50MB the attachment
// service enforces.
const maxUploadSize = 50 << 20

// AttachmentHandler handles attachment HTTP requests
type AttachmentHandler struct {
	attachmentService services.AttachmentService
	logger            *slog.Logger
}

// NewAttachmentHandler creates a new attachment handler
func NewAttachmentHandler(attachmentService services.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger,
	}
}

type attachmentCreatedResponse struct {
	ID string `json:"id"`
}

// UploadAttachment stores a new attachment from a multipart form
// POST /api/attachments
func (h *AttachmentHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "multipart form with a 'file' part is required")
		return
	}
	defer file.Close()

	id, err := h.attachmentService.CreateFromStream(r.Context(), services.AttachmentUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, attachmentCreatedResponse{ID: id})
}

// GetAttachment retrieves attachment metadata
// GET /api/attachments/{id}
func (h *AttachmentHandler) GetAttachment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "attachment ID is required")
		return
	}

	attachment, err := h.attachmentService.GetAttachment(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, attachment)
}

// DownloadAttachment streams the stored file content
// GET /api/attachments/{id}/download
func (h *AttachmentHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "attachment ID is required")
		return
	}

	attachment, err := h.attachmentService.GetAttachment(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	payload, err := h.attachmentService.GetPayload(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+attachment.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
