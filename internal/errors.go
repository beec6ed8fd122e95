package internal

import (
	"context"
	"errors"

	"github.com/4thel00z/fnhist/internal/languages"
)

// ErrorReason is the closed set of failure causes a query can report.
// Each reason is itself an error so it can be wrapped and matched with
// errors.Is.
type ErrorReason string

const (
	ErrRepositoryOpen      ErrorReason = "repository open failure"
	ErrRepositoryAccess    ErrorReason = "repository access failure"
	ErrFileNotFound        ErrorReason = "file not found"
	ErrFunctionNotFound    ErrorReason = "function not found"
	ErrUnsupportedLanguage ErrorReason = "unsupported language"
	ErrParseFailure        ErrorReason = "parse failure"
	ErrQueueFull           ErrorReason = "worker queue full"
	ErrWorkerClosed        ErrorReason = "worker closed"
	ErrInvalidCommand      ErrorReason = "invalid command"
)

func (r ErrorReason) Error() string {
	return string(r)
}

var reasons = []ErrorReason{
	ErrRepositoryOpen,
	ErrRepositoryAccess,
	ErrFileNotFound,
	ErrFunctionNotFound,
	ErrUnsupportedLanguage,
	ErrParseFailure,
	ErrQueueFull,
	ErrWorkerClosed,
	ErrInvalidCommand,
}

// ReasonOf maps err onto the closed reason set. It returns "" for nil and
// for cancellation, which is reported through status rather than a reason.
func ReasonOf(err error) ErrorReason {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r
		}
	}
	switch {
	case errors.Is(err, languages.ErrUnsupportedLanguage):
		return ErrUnsupportedLanguage
	case errors.Is(err, languages.ErrParseFailure):
		return ErrParseFailure
	}
	return ErrRepositoryAccess
}
