package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"recorder2rc/internal/archive"
	"recorder2rc/internal/history"
	"recorder2rc/internal/inventory"
	"recorder2rc/internal/logging"
	"recorder2rc/internal/manifest"
	"recorder2rc/internal/preflight"
	"recorder2rc/internal/rcmanifest"
	"recorder2rc/internal/services"
	"recorder2rc/internal/sources"
	"recorder2rc/internal/staging"
	"recorder2rc/internal/textutil"
)

// ConvertedSuffix is appended to the input file stem for the container name.
const ConvertedSuffix = "_converted"

// OutputPath returns the container archive a conversion of input writes into outputDir.
func OutputPath(input, outputDir string) string {
	return filepath.Join(outputDir, textutil.FileStem(input)+ConvertedSuffix+".zip")
}

// Convert converts the project archive at input into a container archive in
// outputDir. The returned report is populated as far as the run got, also
// when an error is returned.
func (c *Converter) Convert(ctx context.Context, input, outputDir string) (*Report, error) {
	input, err := filepath.Abs(input)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "resolve input", input, err)
	}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = filepath.Dir(input)
	}
	if outputDir, err = filepath.Abs(outputDir); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "resolve output", outputDir, err)
	}

	if err := preflight.Err(preflight.RunAll(c.cfg, input, outputDir)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "create output dir", outputDir, err)
	}

	lock, err := lockOutputDir(outputDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	report := &Report{RunID: runID, InputPath: input, StartedAt: c.now()}
	c.beginRun(ctx, report, outputDir)
	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_start"),
		logging.String("input", input),
		logging.String("output_dir", outputDir),
	)

	runErr := c.run(ctx, report, input, outputDir)
	report.FinishedAt = c.now()
	c.finishRun(ctx, report, runErr)
	if runErr != nil {
		return report, runErr
	}

	logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "conversion_complete"),
		logging.String("output", report.OutputPath),
		logging.Int("chapters", len(report.Chapters)),
		logging.Int("retained", report.Retained()),
		logging.Int("artifacts", report.Artifacts),
		logging.Duration("elapsed", report.Duration()),
	)
	return report, nil
}

func (c *Converter) run(ctx context.Context, report *Report, input, outputDir string) error {
	workDir := c.cfg.Paths.WorkDir
	staging.CleanStale(ctx, workDir, staging.DefaultMaxAge, c.logger)
	runDir, err := staging.NewRunDir(workDir, report.RunID)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "create run dir", workDir, err)
	}
	if c.cfg.Conversion.KeepWorkDir {
		report.WorkDir = runDir
	} else {
		defer func() {
			if err := os.RemoveAll(runDir); err != nil {
				c.logger.Warn("failed to remove run directory", logging.String("path", runDir), logging.Error(err))
			}
		}()
	}

	state, err := c.openProject(ctx, report, input, runDir)
	if err != nil {
		return err
	}

	source, err := c.resolveSource(ctx, state)
	if err != nil {
		return err
	}
	report.Source = fmt.Sprintf("%s_%s v%s", source.Language, source.Identifier, source.Version)
	doc := rcmanifest.Build(rcmanifest.BuildInput{
		Project:       state.project,
		Metadata:      c.cfg.Metadata,
		Source:        source,
		Versification: c.table.Name(),
		Now:           c.now(),
	})
	if err := doc.Write(state.rcDir); err != nil {
		return services.Wrap(services.ErrStreamIO, "workflow", "write container manifest", state.rcDir, err)
	}

	for _, chapter := range state.project.SortedChapters() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("conversion stopped before chapter %d: %w", chapter.Number, err)
		}
		chapterReport, err := c.processChapter(ctx, state, chapter)
		if err != nil {
			return err
		}
		report.Chapters = append(report.Chapters, chapterReport)
		c.recordChapter(ctx, report.RunID, chapterReport)
	}

	if err := state.inventory.WriteSelected(state.rcDir); err != nil {
		return services.Wrap(services.ErrStreamIO, "workflow", "write selected takes", state.rcDir, err)
	}
	report.Artifacts = state.inventory.Len()

	target := OutputPath(input, outputDir)
	if err := archive.Create(state.rcDir, target); err != nil {
		return services.Wrap(services.ErrStreamIO, "workflow", "package container", target, err)
	}
	report.OutputPath = target
	return nil
}

func (c *Converter) openProject(ctx context.Context, report *Report, input, runDir string) (*runState, error) {
	extractDir := filepath.Join(runDir, "project")
	if err := archive.Extract(input, extractDir); err != nil {
		return nil, services.Wrap(services.ErrMalformedManifest, "workflow", "extract project", filepath.Base(input), err)
	}
	root, err := archive.FindProjectRoot(extractDir, manifest.FileName)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedManifest, "workflow", "locate project", filepath.Base(input), err)
	}

	project, err := manifest.Load(filepath.Join(root, manifest.FileName))
	if err != nil {
		return nil, err
	}
	selection, err := manifest.LoadSelection(filepath.Join(root, manifest.SelectionFileName))
	if err != nil {
		return nil, err
	}

	report.Language = project.Language.Slug
	report.Book = project.Book.Slug
	report.Mode = project.Mode.Slug
	if c.store != nil {
		if err := c.store.DescribeRun(ctx, report.RunID, report.Language, report.Book, report.Mode); err != nil {
			c.logger.Warn("history update failed", logging.Error(err))
		}
	}

	chapterCount := len(project.Chapters)
	if n, err := c.table.ChapterCount(project.Book.Slug); err == nil {
		chapterCount = max(chapterCount, n)
	}

	rcDir := filepath.Join(runDir, textutil.FileStem(input)+ConvertedSuffix)
	if err := os.MkdirAll(filepath.Join(rcDir, filepath.FromSlash(inventory.TakesDir)), 0o755); err != nil {
		return nil, services.Wrap(services.ErrStreamIO, "workflow", "create container", rcDir, err)
	}

	logging.WithContext(ctx, c.logger).Info("project loaded",
		logging.String("language", report.Language),
		logging.String("book", report.Book),
		logging.String("mode", report.Mode),
		logging.Int("chapters", len(project.Chapters)),
		logging.Int("selected_takes", len(selection)),
	)
	return &runState{
		project:     project,
		selection:   selection,
		projectRoot: root,
		rcDir:       rcDir,
		naming: inventory.NewNaming(
			textutil.SanitizeToken(project.Language.Slug),
			textutil.SanitizeToken(project.Version.Slug),
			textutil.SanitizeToken(project.Book.Slug),
			chapterCount,
		),
		inventory: &inventory.Inventory{},
	}, nil
}

// resolveSource installs the source resource for the project's source
// language. Without a source catalog the configured identifier is used with
// version 1.
func (c *Converter) resolveSource(ctx context.Context, state *runState) (rcmanifest.Source, error) {
	language := state.project.SourceLanguageSlug(c.cfg.Metadata.SourceLanguage)
	source := rcmanifest.Source{
		Identifier: c.cfg.Metadata.SourceIdentifier,
		Language:   language,
		Version:    "1",
	}

	catalog, err := sources.Open(c.cfg.Paths.SourceDir)
	if err != nil {
		return source, err
	}
	if catalog == nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "no source catalog configured", "source_catalog_missing",
			logging.String("source_language", language),
			logging.String(logging.FieldErrorHint, "set paths.source_dir to a directory with gl_sources.json"),
			logging.String(logging.FieldImpact, "container has no source resource"),
		)
		return source, nil
	}

	installed, err := catalog.Install(language, filepath.Join(state.rcDir, filepath.FromSlash(inventory.SourceDir)))
	if err != nil {
		if errors.Is(err, sources.ErrNoMatchingSource) {
			return source, services.Wrap(services.ErrConfiguration, "workflow", "resolve source", language, err)
		}
		return source, services.Wrap(services.ErrStreamIO, "workflow", "install source", language, err)
	}
	source.Version = installed.Version
	return source, nil
}

func (c *Converter) beginRun(ctx context.Context, report *Report, outputDir string) {
	if c.store == nil {
		return
	}
	if n, err := c.store.ResetInterrupted(ctx, outputDir); err != nil {
		c.logger.Warn("history reset failed", logging.Error(err))
	} else if n > 0 {
		c.logger.Info("marked interrupted runs as failed", logging.Int64("runs", n))
	}
	if days := c.cfg.History.RetentionDays; days > 0 {
		if _, err := c.store.Prune(ctx, c.now().AddDate(0, 0, -days)); err != nil {
			c.logger.Warn("history prune failed", logging.Error(err))
		}
	}
	err := c.store.BeginRun(ctx, history.Run{
		ID:        report.RunID,
		InputPath: report.InputPath,
		OutputDir: outputDir,
		StartedAt: report.StartedAt,
	})
	if err != nil {
		c.logger.Warn("history begin failed", logging.Error(err))
	}
}

func (c *Converter) recordChapter(ctx context.Context, runID string, chapter ChapterReport) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordChapter(ctx, chapter.record(runID)); err != nil {
		c.logger.Warn("history chapter record failed", logging.Int("chapter", chapter.Chapter), logging.Error(err))
	}
}

func (c *Converter) finishRun(ctx context.Context, report *Report, runErr error) {
	logger := logging.WithContext(ctx, c.logger)
	status := history.StatusCompleted
	message := ""
	if runErr != nil {
		status = services.FailureStatus(runErr)
		message = runErr.Error()
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.String("status", string(status)),
			logging.Int("chapters_done", len(report.Chapters)),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, failureHint(status)),
		)
	}
	if c.store == nil {
		return
	}
	if err := c.store.FinishRun(context.WithoutCancel(ctx), report.RunID, status, report.OutputPath, message); err != nil {
		logger.Warn("history finish failed", logging.Error(err))
	}
}

func failureHint(status history.Status) string {
	if status == history.StatusRejected {
		return "fix the project manifest or configuration and convert again"
	}
	return "check the take files and free disk space, then convert again"
}
