package compress

import (
	"context"
	"errors"
	"math"
)

// JobCompressor is satisfied by *Compressor.
type JobCompressor interface {
	Compress(ctx context.Context, job *FileJob, observe Observer) error
}

// BatchProgress receives the aggregate percentage after each job finishes.
type BatchProgress func(completed, total, percent int)

// BatchResult counts batch outcomes. Skipped jobs were not Pending when reached.
type BatchResult struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// RunBatch compresses jobs strictly one after another. A failing job never
// stops the batch.
func RunBatch(ctx context.Context, c JobCompressor, jobs []*FileJob, observe Observer, progress BatchProgress) BatchResult {
	res := BatchResult{Total: len(jobs)}
	for i, job := range jobs {
		err := c.Compress(ctx, job, observe)
		switch {
		case errors.Is(err, ErrNotPending):
			res.Skipped++
		case err != nil:
			res.Failed++
		default:
			res.Done++
		}
		if progress != nil {
			progress(i+1, len(jobs), BatchPercent(i+1, len(jobs)))
		}
	}
	return res
}

// BatchPercent is round(completed/total*100).
func BatchPercent(completed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
