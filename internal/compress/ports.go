package compress

import (
	"context"
	"image"
)

// Size is a page size in PDF points at scale 1.
type Size struct {
	Width  float64
	Height float64
}

// Area returns width*height.
func (s Size) Area() float64 { return s.Width * s.Height }

// TextItem is the bounding geometry of one extracted text run.
type TextItem struct {
	Width  float64
	Height float64
}

// AnalysisPage exposes what the classifier needs from a page.
type AnalysisPage interface {
	Size() Size
	TextItems() ([]TextItem, error)
}

// AnalysisDocument is a parsed document used for classification.
type AnalysisDocument interface {
	NumPages() int
	Page(index int) (AnalysisPage, error)
	Close() error
}

// AnalysisOpener parses a document for analysis. The opener may retain data.
type AnalysisOpener interface {
	Open(data []byte) (AnalysisDocument, error)
}

// PageRenderer rasterizes pages of an opened document. Indexes are 0-based.
type PageRenderer interface {
	NumPages() int
	PageSize(index int) (Size, error)
	Render(index int, scale float64) (image.Image, error)
	Close() error
}

// RenderOpener opens a document for rendering. The opener may retain data.
type RenderOpener interface {
	Open(data []byte) (PageRenderer, error)
}

// Assembler builds output documents.
type Assembler interface {
	// Optimize reloads src and re-saves it with object streams enabled.
	Optimize(ctx context.Context, src []byte) ([]byte, error)
	// NewDocument starts an empty output document whose copied pages come from src.
	NewDocument(ctx context.Context, src []byte) (DocumentBuilder, error)
	PageCount(ctx context.Context, src []byte) (int, error)
}

// DocumentBuilder appends pages to an output document in call order.
type DocumentBuilder interface {
	CopyPage(index int) error
	AddImagePage(jpeg []byte, size Size) error
	Save(ctx context.Context) ([]byte, error)
}
