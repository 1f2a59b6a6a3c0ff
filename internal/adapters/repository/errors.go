package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound        = errors.New("item not found")
	ErrConditionFailed = errors.New("conditional check failed")
	ErrBatchTooLarge   = errors.New("batch exceeds 25 items")
	ErrInvalidKey      = errors.New("invalid item key")
	ErrUnknownDriver   = errors.New("unknown store driver")
)

func statusOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConditionFailed):
		return "condition_failed"
	default:
		return "error"
	}
}
