package mupdf

import (
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/filemend/internal/compress"
	"github.com/local/filemend/internal/split"
)

// pointsPerInch is the DPI at which MuPDF page bounds equal PDF points.
const pointsPerInch = 72

// Opener opens documents with go-fitz. It satisfies compress.RenderOpener.
type Opener struct{}

// NewOpener creates a go-fitz backed opener.
func NewOpener() *Opener {
	return &Opener{}
}

// IsAvailable always returns true since go-fitz is embedded
func (o *Opener) IsAvailable() bool {
	return true
}

// Open implements compress.RenderOpener.
func (o *Opener) Open(data []byte) (compress.PageRenderer, error) {
	return OpenDocument(data)
}

// Inspect implements split.Inspector. A document without an outline yields no
// bookmarks rather than an error.
func (o *Opener) Inspect(data []byte, text, outline bool) (split.Source, error) {
	doc, err := OpenDocument(data)
	if err != nil {
		return split.Source{}, err
	}
	defer doc.Close()

	src := split.Source{Pages: doc.NumPages()}
	if text {
		src.Texts = doc.PageTexts()
	}
	if outline {
		marks, err := doc.Outline()
		if err != nil {
			log.Debug().Err(err).Msg("no outline")
		}
		src.Bookmarks = marks
	}
	return src, nil
}

// Document is an opened MuPDF document. Indexes are 0-based.
type Document struct {
	doc *fitz.Document
}

// OpenDocument parses data. MuPDF keeps a reference to data until Close.
func OpenDocument(data []byte) (*Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{doc: doc}, nil
}

func (d *Document) NumPages() int { return d.doc.NumPage() }

// PageSize returns the page bounds in points. go-fitz truncates them to whole
// points; compress refines them with the analysis page box.
func (d *Document) PageSize(index int) (compress.Size, error) {
	if err := d.checkIndex(index); err != nil {
		return compress.Size{}, err
	}
	b, err := d.doc.Bound(index)
	if err != nil {
		return compress.Size{}, fmt.Errorf("page %d bounds: %w", index+1, err)
	}
	return compress.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

// Render rasterizes page index at 72*scale DPI.
func (d *Document) Render(index int, scale float64) (image.Image, error) {
	if err := d.checkIndex(index); err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(index, pointsPerInch*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", index+1, err)
	}
	log.Debug().
		Int("page", index+1).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Float64("scale", scale).
		Msg("rendered page")
	return img, nil
}

// PageText extracts the plain text of one page.
func (d *Document) PageText(index int) (string, error) {
	if err := d.checkIndex(index); err != nil {
		return "", err
	}
	text, err := d.doc.Text(index)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", index+1, err)
	}
	return text, nil
}

// PageTexts extracts every page's text. A page whose text cannot be read is
// returned as empty and logged.
func (d *Document) PageTexts() []string {
	out := make([]string, d.NumPages())
	for i := range out {
		text, err := d.PageText(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("Failed to extract text from page")
			continue
		}
		out[i] = text
	}
	return out
}

// Outline returns the document outline in document order. Page is 1-based;
// 0 means the entry has no page target. MuPDF reports a missing outline as an
// error.
func (d *Document) Outline() ([]split.Bookmark, error) {
	toc, err := d.doc.ToC()
	if err != nil {
		return nil, fmt.Errorf("read outline: %w", err)
	}
	out := make([]split.Bookmark, 0, len(toc))
	for _, o := range toc {
		out = append(out, split.Bookmark{
			Title: strings.TrimSpace(o.Title),
			Level: o.Level,
			Page:  o.Page + 1,
		})
	}
	return out, nil
}

func (d *Document) Close() error { return d.doc.Close() }

func (d *Document) checkIndex(index int) error {
	if index < 0 || index >= d.doc.NumPage() {
		return fmt.Errorf("page %d out of range (document has %d pages)", index+1, d.doc.NumPage())
	}
	return nil
}
