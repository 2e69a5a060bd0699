package preflight

import (
	"errors"
	"fmt"
	"strings"

	"recorder2rc/internal/config"
	"recorder2rc/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for one conversion of input
// into outputDir.
func RunAll(cfg *config.Config, input, outputDir string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckProjectArchive(input),
		CheckOutputDirectory(outputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckVersification(cfg.Conversion),
	}
	if strings.TrimSpace(cfg.Paths.SourceDir) != "" {
		results = append(results, CheckSourceCatalog(cfg.Paths.SourceDir))
	}
	return results
}

// Failed returns the failed results.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed results into one error. Configuration problems are tagged
// services.ErrConfiguration and project problems services.ErrMalformedManifest.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, len(failed))
	marker := services.ErrConfiguration
	for i, r := range failed {
		parts[i] = fmt.Sprintf("%s: %s", r.Name, r.Detail)
		if r.Name == projectArchiveCheck {
			marker = services.ErrMalformedManifest
		}
	}
	return fmt.Errorf("%w: preflight failed: %w", marker, errors.New(strings.Join(parts, "; ")))
}
