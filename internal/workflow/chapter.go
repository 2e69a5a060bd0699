package workflow

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"recorder2rc/internal/completeness"
	"recorder2rc/internal/fileutil"
	"recorder2rc/internal/inventory"
	"recorder2rc/internal/logging"
	"recorder2rc/internal/manifest"
	"recorder2rc/internal/services"
	"recorder2rc/internal/takes"
)

const (
	stageSelect   = "select"
	stageCompile  = "compile"
	stageSegment  = "segment"
	stageComplete = "completeness"
)

// runState is the per-run context shared by every chapter.
type runState struct {
	project     *manifest.Manifest
	selection   manifest.Selection
	projectRoot string
	rcDir       string
	naming      inventory.Naming
	inventory   *inventory.Inventory
}

func (s *runState) takesDir(chapter int) string {
	return filepath.Join(s.rcDir, filepath.FromSlash(inventory.TakesDir), s.naming.ChapterDir(chapter))
}

// locateTake finds a take file in the extracted project. Recorder exports use
// two- or three-digit chapter directories regardless of the book length.
func (s *runState) locateTake(chapter int, name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	candidates := []string{
		filepath.Join(s.projectRoot, fmt.Sprintf("%02d", chapter), base),
		filepath.Join(s.projectRoot, fmt.Sprintf("%03d", chapter), base),
		filepath.Join(s.projectRoot, base),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("take %s not found in project", base)
}

// verseTarget joins a verse file name onto the chapter directory and refuses
// any result that is not a direct child of it.
func verseTarget(chapterDir, name, label string) (string, error) {
	target := filepath.Join(chapterDir, name)
	if rel, err := filepath.Rel(chapterDir, target); err != nil || rel != filepath.Base(target) {
		return "", services.Wrap(services.ErrMalformedManifest, stageSegment, "name verse",
			fmt.Sprintf("marker label %q leaves the chapter directory", label), err)
	}
	return target, nil
}

// registered is an artifact added to the inventory for the current chapter.
type registered struct {
	logical string
	file    string
}

func (c *Converter) processChapter(ctx context.Context, state *runState, chapter manifest.Chapter) (ChapterReport, error) {
	ctx = services.WithChapter(ctx, chapter.Number)
	logger := logging.WithContext(ctx, c.logger)
	report := ChapterReport{Chapter: chapter.Number}

	selected, err := takes.SelectChapter(chapter, state.selection)
	if err != nil {
		return report, err
	}
	report.SelectedTakes = len(selected)
	if len(selected) == 0 {
		report.Skipped = true
		report.Reason = services.ErrNoTakesSelected.Error()
		logger.Info("chapter skipped",
			logging.String(logging.FieldEventType, "chapter_skipped"),
			logging.String("reason", report.Reason),
		)
		return report, nil
	}

	for i := range selected {
		source, err := state.locateTake(chapter.Number, selected[i].Name)
		if err != nil {
			return report, services.Wrap(services.ErrStreamIO, stageSelect, "locate take", fmt.Sprintf("chapter %d", chapter.Number), err)
		}
		selected[i].SourceFile = source
	}
	logger.Debug("takes selected",
		append([]any{
			logging.Int("takes", len(selected)),
		}, logging.Args(logging.DecisionAttrs("take_selection", "selected", "lowest approved take per chunk")...)...)...,
	)

	chapterDir := state.takesDir(chapter.Number)
	if err := os.MkdirAll(chapterDir, 0o755); err != nil {
		return report, services.Wrap(services.ErrStreamIO, stageCompile, "create chapter dir", chapterDir, err)
	}

	var (
		artifacts []registered
		present   []string
	)
	if !state.project.Segmented() {
		artifacts, err = c.registerTakes(ctx, state, chapter, selected)
		if err != nil {
			return report, err
		}
		for _, take := range selected {
			present = append(present, strconv.Itoa(take.ChunkStart))
		}
	}

	sources := make([]string, len(selected))
	for i, take := range selected {
		sources[i] = take.SourceFile
	}
	chapterName := state.naming.ChapterName(chapter.Number)
	chapterFile := filepath.Join(chapterDir, chapterName)
	compiled, err := c.compiler.Compile(services.WithStage(ctx, stageCompile), sources, chapterFile)
	if err != nil {
		return report, err
	}
	report.Frames = compiled.Frames

	if state.project.Segmented() {
		segments, err := c.segmenter.Split(services.WithStage(ctx, stageSegment), chapterFile, func(label string) (string, error) {
			return verseTarget(chapterDir, state.naming.VerseName(chapter.Number, label, 1), label)
		})
		if err != nil {
			return report, err
		}
		for _, seg := range segments {
			logical := state.naming.LogicalPath(chapter.Number, filepath.Base(seg.Path))
			state.inventory.Add(logical, seg.Path)
			artifacts = append(artifacts, registered{logical: logical, file: seg.Path})
			present = append(present, seg.Label)
		}
	}
	report.VerseFiles = len(artifacts)

	decision, err := completeness.Check(c.table, state.project.Book.Slug, chapter.Number, present)
	if err != nil {
		return report, fmt.Errorf("%s: chapter %d: %w", stageComplete, chapter.Number, err)
	}
	report.RequiredVerses = decision.Required
	report.Retained = decision.Retain
	report.Reason = decision.Reason()

	if decision.Retain {
		state.inventory.Add(state.naming.LogicalPath(chapter.Number, chapterName), chapterFile)
		logger.Info("chapter retained",
			append([]any{
				logging.String(logging.FieldEventType, "chapter_retained"),
				logging.Int("verses", decision.Required),
				logging.Int64("frames", compiled.Frames),
			}, logging.Args(logging.DecisionAttrs("chapter_retention", "retain", report.Reason)...)...)...,
		)
		return report, nil
	}

	if err := os.Remove(chapterFile); err != nil && !os.IsNotExist(err) {
		return report, services.Wrap(services.ErrStreamIO, stageComplete, "discard chapter", chapterFile, err)
	}
	if c.cfg.Conversion.CascadeDiscard {
		for _, artifact := range artifacts {
			state.inventory.Remove(artifact.logical)
			if err := os.Remove(artifact.file); err != nil && !os.IsNotExist(err) {
				return report, services.Wrap(services.ErrStreamIO, stageComplete, "discard verse file", artifact.file, err)
			}
		}
		report.VerseFiles = 0
	}
	logging.WarnWithContext(logger, "chapter discarded", "chapter_discarded",
		logging.Int("required_verses", decision.Required),
		logging.Int("missing_verses", len(decision.Missing)),
		logging.Bool("cascade_discard", c.cfg.Conversion.CascadeDiscard),
		logging.String(logging.FieldErrorHint, "record the missing verses and convert again"),
		logging.String(logging.FieldImpact, "chapter file left out of the container"),
		logging.String(logging.FieldDecisionType, "chapter_retention"),
		logging.String("decision_result", "discard"),
		logging.String("decision_reason", report.Reason),
	)
	return report, nil
}

// registerTakes copies verse-mode takes into the container and registers the
// selected ones. With keep_alternate_takes every take of the chapter is copied.
func (c *Converter) registerTakes(ctx context.Context, state *runState, chapter manifest.Chapter, selected []takes.Take) ([]registered, error) {
	logger := logging.WithContext(ctx, c.logger)
	chapterDir := state.takesDir(chapter.Number)

	if c.cfg.Conversion.KeepAlternateTakes {
		chosen := make(map[string]struct{}, len(selected))
		for _, take := range selected {
			chosen[take.Name] = struct{}{}
		}
		for _, take := range takes.All(chapter) {
			if _, ok := chosen[take.Name]; ok {
				continue
			}
			source, err := state.locateTake(chapter.Number, take.Name)
			if err != nil {
				logging.WarnWithContext(logger, "alternate take missing", "alternate_take_missing",
					logging.String("take", take.Name),
					logging.String(logging.FieldErrorHint, "re-export the project from the recorder"),
					logging.String(logging.FieldImpact, "alternate take not available for review"),
				)
				continue
			}
			dst := filepath.Join(chapterDir, state.naming.TakeName(chapter.Number, take.ChunkStart, take.Number))
			if err := fileutil.CopyFile(source, dst); err != nil {
				return nil, services.Wrap(services.ErrStreamIO, stageSelect, "copy alternate take", take.Name, err)
			}
		}
	}

	artifacts := make([]registered, 0, len(selected))
	for _, take := range selected {
		name := state.naming.TakeName(chapter.Number, take.ChunkStart, take.Number)
		dst := filepath.Join(chapterDir, name)
		if err := fileutil.CopyFile(take.SourceFile, dst); err != nil {
			return nil, services.Wrap(services.ErrStreamIO, stageSelect, "copy take", take.Name, err)
		}
		logical := state.naming.LogicalPath(chapter.Number, name)
		state.inventory.Add(logical, dst)
		artifacts = append(artifacts, registered{logical: logical, file: dst})
	}
	return artifacts, nil
}
