package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrDuplicateSubmission = errors.New("duplicate submission in flight")
	ErrBackendRejected     = errors.New("backend rejected request")
	ErrTrackerClosed       = errors.New("tracker closed")
)
