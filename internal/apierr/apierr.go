package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"studysync/internal/domain"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps domain sentinels onto an HTTP status and machine code.
// An *Error already in the chain is returned as is.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, domain.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrMetadataStore):
		return New(http.StatusInternalServerError, "metadata_store", err)
	case errors.Is(err, domain.ErrIngestionFailed):
		return New(http.StatusInternalServerError, "ingestion_failed", err)
	case errors.Is(err, domain.ErrIndexUnavailable):
		return New(http.StatusServiceUnavailable, "index_unavailable", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
