package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrUserNotFound   = errors.New("user not found")
)

// MaxMediaBytes caps a single attachment at 10 MiB.
const MaxMediaBytes int64 = 10 << 20

// ValidationError lists every required field that was missing and every
// field whose value could not be interpreted. It is never retried.
type ValidationError struct {
	MissingFields []string
	InvalidFields []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.MissingFields, ", "))
	}
	if len(e.InvalidFields) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.InvalidFields, ", "))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Empty() bool {
	return len(e.MissingFields) == 0 && len(e.InvalidFields) == 0
}

type UnsupportedMediaError struct {
	ContentType string
}

func (e *UnsupportedMediaError) Error() string {
	return fmt.Sprintf("unsupported media type %q: only image and video files are allowed", e.ContentType)
}

type PayloadTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("attachment of %d bytes exceeds the %d byte limit", e.Size, e.Limit)
	}
	return fmt.Sprintf("attachment exceeds the %d byte limit", e.Limit)
}

// IngestionError is a server-side storage failure. The submission may be
// retried.
type IngestionError struct {
	Op  string
	Err error
}

func (e *IngestionError) Error() string {
	if e.Err == nil {
		return "ingestion failed: " + e.Op
	}
	return fmt.Sprintf("ingestion failed: %s: %v", e.Op, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("submission timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a submission failure belongs on the offline
// queue retry path. Only transport and storage failures do; anything the
// server rejected on its merits would fail identically on resubmission.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var (
		validationErr  *ValidationError
		unsupportedErr *UnsupportedMediaError
		tooLargeErr    *PayloadTooLargeError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &unsupportedErr),
		errors.As(err, &tooLargeErr):
		return false
	}

	return true
}
