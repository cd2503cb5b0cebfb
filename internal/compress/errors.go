package compress

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks files rejected at intake.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate is an intake rejection for a file already present (same name and size).
	ErrDuplicate = fmt.Errorf("%w: duplicate file", ErrInvalidInput)
	// ErrAnalysisDegraded is returned by the analyzer when text extraction fails.
	// The compressor recovers from it by falling back to lossless mode.
	ErrAnalysisDegraded         = errors.New("analysis degraded")
	ErrRenderSurfaceUnavailable = errors.New("render surface unavailable")
	ErrEncodeFailed             = errors.New("encode failed")
	ErrAssemblyFailed           = errors.New("assembly failed")
	ErrInvalidSettings          = errors.New("invalid compression settings")
	ErrNotPending               = errors.New("job is not pending")
)

// StageError carries the pipeline stage and page (1-based, 0 for whole document)
// at which a job failed.
type StageError struct {
	Stage string
	Page  int
	Err   error
}

func (e *StageError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s page %d: %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, page int, kind, err error) error {
	if kind != nil && !errors.Is(err, kind) {
		err = fmt.Errorf("%w: %w", kind, err)
	}
	return &StageError{Stage: stage, Page: page, Err: err}
}
