package services

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	chapterKey contextKey = "chapter"
	stageKey   contextKey = "stage"
)

// WithRunID annotates context with the conversion run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the conversion run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChapter annotates context with the chapter currently being processed.
func WithChapter(ctx context.Context, chapter int) context.Context {
	if chapter <= 0 {
		return ctx
	}
	return context.WithValue(ctx, chapterKey, chapter)
}

// ChapterFromContext extracts the chapter number if present.
func ChapterFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(chapterKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
