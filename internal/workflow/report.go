package workflow

import (
	"time"

	"recorder2rc/internal/history"
)

// ChapterReport is the outcome of one chapter.
type ChapterReport struct {
	Chapter        int    `json:"chapter"`
	SelectedTakes  int    `json:"selected_takes"`
	Frames         int64  `json:"frames"`
	VerseFiles     int    `json:"verse_files"`
	RequiredVerses int    `json:"required_verses"`
	Retained       bool   `json:"retained"`
	Skipped        bool   `json:"skipped"`
	Reason         string `json:"reason"`
}

func (c ChapterReport) record(runID string) history.ChapterRecord {
	return history.ChapterRecord{
		RunID:          runID,
		Chapter:        c.Chapter,
		SelectedTakes:  c.SelectedTakes,
		Frames:         c.Frames,
		VerseFiles:     c.VerseFiles,
		RequiredVerses: c.RequiredVerses,
		Retained:       c.Retained,
		Reason:         c.Reason,
	}
}

// Report summarises a conversion run.
type Report struct {
	RunID      string          `json:"run_id"`
	InputPath  string          `json:"input_path"`
	OutputPath string          `json:"output_path"`
	WorkDir    string          `json:"work_dir,omitempty"`
	Language   string          `json:"language"`
	Book       string          `json:"book"`
	Mode       string          `json:"mode"`
	Source     string          `json:"source"`
	Artifacts  int             `json:"artifacts"`
	Chapters   []ChapterReport `json:"chapters"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Retained counts chapters whose chapter file was kept.
func (r *Report) Retained() int {
	n := 0
	for _, c := range r.Chapters {
		if c.Retained {
			n++
		}
	}
	return n
}

// Skipped counts chapters without an approved take.
func (r *Report) Skipped() int {
	n := 0
	for _, c := range r.Chapters {
		if c.Skipped {
			n++
		}
	}
	return n
}

// Duration reports how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
