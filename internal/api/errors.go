package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/review"
	"github.com/dharsanguruparan/omnigo/internal/signing"
	"github.com/dharsanguruparan/omnigo/internal/staging"
	"github.com/dharsanguruparan/omnigo/internal/storage"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func newTooLargeError(message string) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "FILE_TOO_LARGE",
		Message: message,
	}
}

// newReadError reports a failed body read. Hitting the request body cap is
// the client's upload being too large, not a malformed request.
func newReadError(message string, cause error) *APIError {
	var maxErr *http.MaxBytesError
	if errors.As(cause, &maxErr) {
		return newTooLargeError(fmt.Sprintf("upload exceeds limit (%d bytes)", maxErr.Limit))
	}
	return newBadRequestError(message, cause)
}

func newInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// errorMapping pairs a sentinel error with the response it becomes.
type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{staging.ErrUnsupportedType, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE"},
	{staging.ErrUnknownEntry, http.StatusBadRequest, "UNKNOWN_ENTRY"},
	{review.ErrUnknownChannel, http.StatusBadRequest, "UNKNOWN_CHANNEL"},
	{archive.ErrBadFilter, http.StatusBadRequest, "BAD_FILTER"},
	{workflow.ErrStage, http.StatusConflict, "STAGE_CONFLICT"},
	{workflow.ErrSubmitBlocked, http.StatusConflict, "SUBMIT_BLOCKED"},
	{review.ErrImmutable, http.StatusConflict, "IMMUTABLE"},
	{staging.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{review.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{archive.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{archive.ErrFileNotFound, http.StatusNotFound, "NOT_FOUND"},
	{storage.ErrArtifactNotFound, http.StatusNotFound, "NOT_FOUND"},
	{signing.ErrBadExpiry, http.StatusBadRequest, "BAD_REQUEST"},
	{signing.ErrExpired, http.StatusUnauthorized, "URL_EXPIRED"},
	{signing.ErrBadSignature, http.StatusUnauthorized, "BAD_SIGNATURE"},
}

// fromError converts a domain error into an APIError. Unknown errors become
// 500s.
func fromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return &APIError{Status: m.status, Code: m.code, Message: err.Error()}
		}
	}
	return newInternalError("an unexpected error occurred", err)
}
