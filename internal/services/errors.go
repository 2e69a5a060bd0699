package services

import (
	"errors"
	"fmt"
	"strings"

	"recorder2rc/internal/history"
)

var (
	ErrMalformedManifest = errors.New("malformed manifest")
	ErrUnknownBook       = errors.New("unknown book")
	ErrChapterOutOfRange = errors.New("chapter out of range")
	ErrStreamIO          = errors.New("stream i/o failure")
	ErrNoTakesSelected   = errors.New("no takes selected")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStreamIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a run error to the history status recorded for it.
// Input problems (bad manifest, unknown book, bad config) reject the project;
// everything else is a processing failure.
func FailureStatus(err error) history.Status {
	switch {
	case errors.Is(err, ErrMalformedManifest),
		errors.Is(err, ErrUnknownBook),
		errors.Is(err, ErrChapterOutOfRange),
		errors.Is(err, ErrConfiguration):
		return history.StatusRejected
	default:
		return history.StatusFailed
	}
}

// IsFatal reports whether err must abort the whole run. Only the informational
// no-takes marker is survivable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNoTakesSelected)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "conversion failure"
	}
	return strings.Join(parts, ": ")
}
