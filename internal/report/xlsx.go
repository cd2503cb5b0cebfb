package report

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/local/filemend/internal/compress"
)

const (
	jobsSheet    = "Jobs"
	summarySheet = "Summary"
)

var jobHeaders = []string{
	"ID",
	"File",
	"Status",
	"Mode",
	"Original Bytes",
	"Compressed Bytes",
	"Ratio %",
	"Pages Copied",
	"Pages Rasterized",
	"Analysis Degraded",
	"Error",
	"Created",
	"Finished",
}

// Workbook renders jobs and their summary as XLSX bytes.
func Workbook(jobs []compress.FileJob) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(jobsSheet); index == -1 {
		if _, err := f.NewSheet(jobsSheet); err != nil {
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(jobsSheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range jobHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(jobsSheet, cell, h)
	}

	for n, j := range jobs {
		row := n + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(jobsSheet, cell, v)
		}
		write(1, j.ID)
		write(2, j.Name)
		write(3, string(j.Status))
		write(4, string(j.Mode))
		write(5, j.OriginalSize)
		if j.Status == compress.StatusDone {
			write(6, j.ResultSize)
			write(7, round1(j.CompressionRatio))
		}
		write(8, j.PagesCopied)
		write(9, j.PagesRasterized)
		write(10, j.AnalysisDegraded)
		write(11, j.ErrorMessage)
		write(12, j.CreatedAt.UTC().Format(time.RFC3339))
		if !j.FinishedAt.IsZero() {
			write(13, j.FinishedAt.UTC().Format(time.RFC3339))
		}
	}

	_ = f.SetColWidth(jobsSheet, "A", "A", 38)
	_ = f.SetColWidth(jobsSheet, "B", "B", 32)
	_ = f.SetColWidth(jobsSheet, "C", "J", 14)
	_ = f.SetColWidth(jobsSheet, "K", "K", 40)
	_ = f.SetColWidth(jobsSheet, "L", "M", 22)

	if err := writeSummary(f, Summarize(jobs)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	log.Debug().Int("jobs", len(jobs)).Dur("took", time.Since(start)).Msg("report workbook built")
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, s Stats) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][2]any{
		{"Files", s.FileCount},
		{"Compressed", s.CompressedCount},
		{"Original Bytes", s.TotalOriginal},
		{"Compressed Bytes", s.TotalCompressed},
		{"Saved Bytes", s.TotalSaved},
		{"Average Ratio %", round1(s.AverageRatio)},
	}
	for i, r := range rows {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), r[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), r[1])
	}
	return f.SetColWidth(summarySheet, "A", "A", 20)
}

func round1(v float64) float64 {
	if v < 0 {
		return -round1(-v)
	}
	return float64(int64(v*10+0.5)) / 10
}
