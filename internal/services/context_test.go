package services_test

import (
	"context"
	"testing"

	"recorder2rc/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithChapter(ctx, 7)
	ctx = services.WithStage(ctx, "compile")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if chapter, ok := services.ChapterFromContext(ctx); !ok || chapter != 7 {
		t.Fatalf("unexpected chapter: %v %v", chapter, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "compile" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithChapter(ctx, 0)
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ChapterFromContext(ctx); ok {
		t.Fatal("expected no chapter value")
	}
}
