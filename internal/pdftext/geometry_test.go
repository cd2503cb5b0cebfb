package pdftext

import (
	"context"
	"testing"

	"github.com/local/filemend/internal/compress"
	"github.com/local/filemend/internal/pdftest"
)

func TestOpenerReportsSizeAndText(t *testing.T) {
	data := pdftest.Pages(pdftest.TextPage("A"), pdftest.BlankPage())

	doc, err := NewOpener().Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer doc.Close()

	if doc.NumPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.NumPages())
	}

	first, err := doc.Page(0)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if s := first.Size(); s.Width != 612 || s.Height != 792 {
		t.Fatalf("unexpected size %+v", s)
	}
	items, err := first.TextItems()
	if err != nil {
		t.Fatalf("text items: %v", err)
	}
	if compress.TextArea(items) <= 0 {
		t.Fatalf("expected positive text area, got %d items", len(items))
	}

	blank, _ := doc.Page(1)
	items, err = blank.TextItems()
	if err != nil {
		t.Fatalf("blank text items: %v", err)
	}
	if compress.TextArea(items) != 0 {
		t.Fatalf("expected no text on blank page")
	}
}

func TestAnalyzerOverLedongthuc(t *testing.T) {
	data := pdftest.Pages(
		pdftest.TextPage("A"),
		pdftest.TextPage("B"),
		pdftest.BlankPage(),
		pdftest.BlankPage(),
	)
	got, err := compress.NewAnalyzer(NewOpener(), 0).Analyze(context.Background(), data)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Mode != compress.ModeHybrid {
		t.Fatalf("expected hybrid, got %s (%v)", got.Mode, got.Pages)
	}
	if got.Pages[0] != compress.TextHeavy || got.Pages[2] != compress.ImageHeavy {
		t.Fatalf("unexpected verdicts %v", got.Pages)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := NewOpener().Open([]byte("not a pdf at all")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
	if _, err := NewOpener().Open(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
