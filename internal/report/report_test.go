package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/local/filemend/internal/compress"
)

func sampleJobs() []compress.FileJob {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return []compress.FileJob{
		{ID: "a", Name: "a.pdf", Status: compress.StatusDone, Mode: compress.ModeImage, OriginalSize: 1000, ResultSize: 400, CompressionRatio: 60, PagesRasterized: 3, CreatedAt: now, FinishedAt: now},
		{ID: "b", Name: "b.pdf", Status: compress.StatusDone, Mode: compress.ModeLossless, OriginalSize: 1000, ResultSize: 1100, CompressionRatio: -10, PagesCopied: 2, CreatedAt: now},
		{ID: "c", Name: "c.pdf", Status: compress.StatusFailed, OriginalSize: 500, ErrorMessage: "encode failed", CreatedAt: now},
		{ID: "d", Name: "d.pdf", Status: compress.StatusPending, OriginalSize: 200, CreatedAt: now},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleJobs())
	if s.FileCount != 4 || s.CompressedCount != 2 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if s.TotalOriginal != 2700 || s.TotalCompressed != 1500 || s.TotalSaved != 500 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if math.Abs(s.AverageRatio-25) > 1e-9 {
		t.Fatalf("unexpected average %v", s.AverageRatio)
	}
	if empty := Summarize(nil); empty.AverageRatio != 0 || empty.FileCount != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}

func TestWorkbook(t *testing.T) {
	data, err := Workbook(sampleJobs())
	if err != nil {
		t.Fatalf("workbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue(jobsSheet, "B2"); v != "a.pdf" {
		t.Fatalf("unexpected B2 %q", v)
	}
	if v, _ := f.GetCellValue(jobsSheet, "G3"); v != "-10" {
		t.Fatalf("unexpected ratio cell %q", v)
	}
	if v, _ := f.GetCellValue(jobsSheet, "K4"); v != "encode failed" {
		t.Fatalf("unexpected error cell %q", v)
	}
	if v, _ := f.GetCellValue(jobsSheet, "F5"); v != "" {
		t.Fatalf("pending job must have no compressed size, got %q", v)
	}
	if v, _ := f.GetCellValue(summarySheet, "B5"); v != "500" {
		t.Fatalf("unexpected saved bytes %q", v)
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Fatalf("default sheet should be removed")
	}
}
