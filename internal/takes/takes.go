// Package takes chooses the approved recording for each chunk of a chapter.
package takes

import (
	"fmt"
	"slices"

	"recorder2rc/internal/manifest"
	"recorder2rc/internal/services"
)

// WholeChapter is the ChunkStart of a take that covers the whole chapter.
const WholeChapter = 0

// Take is one recording chosen for compilation.
type Take struct {
	Name       string
	Number     int
	ChunkStart int
	ChunkEnd   int
	// SourceFile is filled in by the caller once the take is located on disk.
	SourceFile string
}

// Select returns the approved take of chunk. When several takes are approved
// the lowest take number wins and equal numbers fall back to manifest order.
func Select(chunk manifest.Chunk, approved manifest.Selection) (Take, bool) {
	var (
		best  Take
		found bool
	)
	for _, candidate := range chunk.Takes {
		if !approved.Contains(candidate.Name) {
			continue
		}
		number := manifest.TakeNumber(candidate.Name)
		if found && number >= best.Number {
			continue
		}
		best = Take{
			Name:       candidate.Name,
			Number:     number,
			ChunkStart: chunk.StartVerse,
			ChunkEnd:   chunk.EndVerse,
		}
		found = true
	}
	return best, found
}

// SelectChapter runs Select over every chunk of chapter and returns the chosen
// takes ordered by chunk start verse. Chunks sharing a start verse make the
// order undefined and are rejected, as are chunks whose verse ranges overlap.
func SelectChapter(chapter manifest.Chapter, approved manifest.Selection) ([]Take, error) {
	chunks := slices.Clone(chapter.Chunks)
	slices.SortStableFunc(chunks, func(a, b manifest.Chunk) int {
		return a.StartVerse - b.StartVerse
	})
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartVerse == chunks[i-1].StartVerse {
			return nil, fmt.Errorf("%w: chapter %d has two chunks starting at verse %d",
				services.ErrMalformedManifest, chapter.Number, chunks[i].StartVerse)
		}
		if chunks[i].StartVerse <= chunks[i-1].EndVerse {
			return nil, fmt.Errorf("%w: chapter %d chunk %d-%d overlaps chunk %d-%d",
				services.ErrMalformedManifest, chapter.Number,
				chunks[i].StartVerse, chunks[i].EndVerse, chunks[i-1].StartVerse, chunks[i-1].EndVerse)
		}
	}

	selected := make([]Take, 0, len(chunks))
	for _, chunk := range chunks {
		if take, ok := Select(chunk, approved); ok {
			selected = append(selected, take)
		}
	}
	return selected, nil
}

// All returns every take of chapter ordered by chunk start verse, approved or not.
func All(chapter manifest.Chapter) []Take {
	chunks := slices.Clone(chapter.Chunks)
	slices.SortStableFunc(chunks, func(a, b manifest.Chunk) int {
		return a.StartVerse - b.StartVerse
	})
	var all []Take
	for _, chunk := range chunks {
		for _, candidate := range chunk.Takes {
			all = append(all, Take{
				Name:       candidate.Name,
				Number:     manifest.TakeNumber(candidate.Name),
				ChunkStart: chunk.StartVerse,
				ChunkEnd:   chunk.EndVerse,
			})
		}
	}
	return all
}
