package api

import (
	"errors"
	"net/http"

	"github.com/okian/sportsmeet/internal/domain/errs"
)

// Sentinel kinds for API errors.
var (
	ErrServe        = errors.New("swagger serve failed")
	ErrBadRequest   = errors.New("bad request")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrRateLimited  = errors.New("rate limited")
)

// Error codes carried in the JSON error body.
const (
	codeBadRequest     = "bad_request"
	codeValidation     = "validation_error"
	codeNotFound       = "not_found"
	codeConflict       = "conflict"
	codeTooLarge       = "precondition_failed"
	codeBodyTooLarge   = "payload_too_large"
	codePartialFailure = "partial_failure"
	codeStorage        = "storage_error"
	codeRateLimited    = "rate_limited"
	codeInternal       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	ItemsSaved   *int `json:"itemsSaved,omitempty"`
	UpdatedCount *int `json:"updatedCount,omitempty"`
	FailedCount  *int `json:"failedCount,omitempty"`
}

// statusOf maps an error kind onto an HTTP status and error code.
func statusOf(err error) (int, string) {
	var partial *errs.PartialError
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, codeBodyTooLarge
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest
	case errors.As(err, &partial):
		return http.StatusInternalServerError, codePartialFailure
	}
	switch errs.KindOf(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest, codeValidation
	case errs.ErrNotFound:
		return http.StatusNotFound, codeNotFound
	case errs.ErrConflict:
		return http.StatusConflict, codeConflict
	case errs.ErrPreconditionFailed:
		return http.StatusRequestEntityTooLarge, codeTooLarge
	case errs.ErrStorage:
		return http.StatusInternalServerError, codeStorage
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func errorBody(err error) (int, errorResponse) {
	status, code := statusOf(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	return status, errorResponse{Error: msg, Code: code}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

// writePartial reports a batch write where only some items landed.
func writePartial(w http.ResponseWriter, err error, saved int) {
	status, body := errorBody(err)
	body.ItemsSaved = &saved
	writeJSON(w, status, body)
}

// writeFanOut reports an attendance fan-out where every write failed.
func writeFanOut(w http.ResponseWriter, err error, updated, failed int) {
	status, body := errorBody(err)
	body.UpdatedCount = &updated
	body.FailedCount = &failed
	writeJSON(w, status, body)
}
