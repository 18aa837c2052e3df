package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface keeps handler error mapping extensible.
type HTTPError interface {
	error
	StatusCode() int
}

// Category sentinels - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Code is a stable machine-readable error code surfaced to API clients.
// Codes never change once published; messages may.
type Code string

const (
	CodeMissingLogbook          Code = "MISSING_LOGBOOK"
	CodeLogbookNotFound         Code = "LOGBOOK_NOT_FOUND"
	CodeMultiLogbookSummary     Code = "MULTI_LOGBOOK_SUMMARY"
	CodeShiftNotFound           Code = "SHIFT_NOT_FOUND"
	CodeAttachmentNotFound      Code = "ATTACHMENT_NOT_FOUND"
	CodeTagNotFound             Code = "TAG_NOT_FOUND"
	CodeInvalidTitle            Code = "INVALID_TITLE"
	CodeInvalidBody             Code = "INVALID_BODY"
	CodeEntryNotFound           Code = "ENTRY_NOT_FOUND"
	CodeSupersedeAlreadyCreated Code = "SUPERSEDE_ALREADY_CREATED"
	CodeDuplicateOriginID       Code = "DUPLICATE_ORIGIN_ID"
	CodeReferenceEntryNotFound  Code = "REFERENCE_ENTRY_NOT_FOUND"
)

// category maps each code onto a sentinel for errors.Is() interop and an
// HTTP status for the handler layer.
func (c Code) category() (error, int) {
	switch c {
	case CodeLogbookNotFound, CodeShiftNotFound, CodeAttachmentNotFound,
		CodeTagNotFound, CodeEntryNotFound, CodeReferenceEntryNotFound:
		return ErrNotFound, http.StatusNotFound
	case CodeSupersedeAlreadyCreated, CodeDuplicateOriginID:
		return ErrConflict, http.StatusConflict
	default:
		return ErrValidation, http.StatusBadRequest
	}
}

// Error is a typed domain error carrying a stable code.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface
func (e *Error) Error() string { return e.Message }

// StatusCode implements the HTTPError interface
func (e *Error) StatusCode() int {
	_, status := e.Code.category()
	return status
}

// Is allows errors.Is() to match against the category sentinels
func (e *Error) Is(target error) bool {
	sentinel, _ := e.Code.category()
	return target == sentinel
}

// Errorf builds a typed domain error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from an error chain.
// Returns the empty code when the error is not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
