// Package report summarizes compression jobs as totals and XLSX workbooks.
package report

import "github.com/local/filemend/internal/compress"

// Stats aggregates a job list. TotalOriginal covers every job while
// TotalSaved only counts finished ones.
type Stats struct {
	FileCount       int     `json:"file_count"`
	CompressedCount int     `json:"compressed_count"`
	TotalOriginal   int64   `json:"total_original"`
	TotalCompressed int64   `json:"total_compressed"`
	TotalSaved      int64   `json:"total_saved"`
	AverageRatio    float64 `json:"average_ratio"`
}

// Summarize totals the jobs. The average ratio is taken over Done jobs and is
// 0 when there are none.
func Summarize(jobs []compress.FileJob) Stats {
	s := Stats{FileCount: len(jobs)}
	var doneOriginal int64
	var ratioSum float64
	for _, j := range jobs {
		s.TotalOriginal += j.OriginalSize
		if j.Status != compress.StatusDone {
			continue
		}
		s.CompressedCount++
		s.TotalCompressed += j.ResultSize
		doneOriginal += j.OriginalSize
		ratioSum += j.CompressionRatio
	}
	s.TotalSaved = doneOriginal - s.TotalCompressed
	if s.CompressedCount > 0 {
		s.AverageRatio = ratioSum / float64(s.CompressedCount)
	}
	return s
}
