package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("begin run: id is required")
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            id, input_path, output_dir, language, book, mode, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.InputPath,
		run.OutputDir,
		nullableString(run.Language),
		nullableString(run.Book),
		nullableString(run.Mode),
		StatusRunning,
		started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// DescribeRun fills in the project attributes once the manifest has been read.
func (s *Store) DescribeRun(ctx context.Context, runID, language, book, mode string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET language = ?, book = ?, mode = ? WHERE id = ?`,
		nullableString(language),
		nullableString(book),
		nullableString(mode),
		runID,
	)
	if err != nil {
		return fmt.Errorf("describe run: %w", err)
	}
	return nil
}

// RecordChapter stores or replaces the outcome of one chapter.
func (s *Store) RecordChapter(ctx context.Context, record ChapterRecord) error {
	recorded := record.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT OR REPLACE INTO chapter_outcomes (
            run_id, chapter, selected_takes, frames, verse_files, required_verses, retained, reason, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Chapter,
		record.SelectedTakes,
		record.Frames,
		record.VerseFiles,
		record.RequiredVerses,
		boolToInt(record.Retained),
		nullableString(record.Reason),
		recorded.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record chapter %d: %w", record.Chapter, err)
	}
	return nil
}

// FinishRun closes a run with its terminal status.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, outputPath, errorMessage string) error {
	if status == StatusRunning {
		return fmt.Errorf("finish run: %q is not a terminal status", status)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, output_path = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status,
		nullableString(outputPath),
		nullableString(errorMessage),
		time.Now().UTC().Format(time.RFC3339Nano),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// GetRun fetches a run by identifier. A missing run yields (nil, nil).
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRunByPrefix resolves an abbreviated run id. Ambiguous prefixes fail.
func (s *Store) FindRunByPrefix(ctx context.Context, prefix string) (*Run, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY started_at DESC LIMIT 2`,
		prefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
	}
}

// ListRuns returns the most recent runs, newest first. A limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ChaptersForRun returns chapter outcomes ordered by chapter number.
func (s *Store) ChaptersForRun(ctx context.Context, runID string) ([]ChapterRecord, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+chapterColumns+` FROM chapter_outcomes WHERE run_id = ? ORDER BY chapter`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var records []ChapterRecord
	for rows.Next() {
		record, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ResetInterrupted marks runs left in the running state by a crashed process
// as failed. The caller must hold the output lock for the run's directory.
func (s *Store) ResetInterrupted(ctx context.Context, outputDir string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE status = ? AND output_dir = ?`,
		StatusFailed,
		InterruptedReason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusRunning,
		outputDir,
	)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished runs that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM runs WHERE status != ? AND started_at < ?`,
		StatusRunning,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
