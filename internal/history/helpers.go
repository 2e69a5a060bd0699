package history

import (
	"database/sql"
	"time"
)

const runColumns = "id, input_path, output_dir, output_path, language, book, mode, status, error_message, started_at, finished_at"

const chapterColumns = "run_id, chapter, selected_takes, frames, verse_files, required_verses, retained, reason, recorded_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		inputPath    string
		outputDir    string
		outputPath   sql.NullString
		language     sql.NullString
		book         sql.NullString
		mode         sql.NullString
		statusStr    string
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&inputPath,
		&outputDir,
		&outputPath,
		&language,
		&book,
		&mode,
		&statusStr,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		InputPath:    inputPath,
		OutputDir:    outputDir,
		OutputPath:   outputPath.String,
		Language:     language.String,
		Book:         book.String,
		Mode:         mode.String,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if ts, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = ts
	}
	if finishedRaw.Valid {
		if ts, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &ts
		}
	}
	return run, nil
}

func scanChapter(scanner interface{ Scan(dest ...any) error }) (ChapterRecord, error) {
	var (
		record      ChapterRecord
		retained    int
		reason      sql.NullString
		recordedRaw string
	)
	if err := scanner.Scan(
		&record.RunID,
		&record.Chapter,
		&record.SelectedTakes,
		&record.Frames,
		&record.VerseFiles,
		&record.RequiredVerses,
		&retained,
		&reason,
		&recordedRaw,
	); err != nil {
		return ChapterRecord{}, err
	}
	record.Retained = retained != 0
	record.Reason = reason.String
	if ts, err := parseTimeString(recordedRaw); err == nil {
		record.RecordedAt = ts
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
