// Package pdftext reads per-page text geometry with github.com/ledongthuc/pdf
// for page classification.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"

	"github.com/local/filemend/internal/compress"
)

// maxParentDepth bounds the walk up the page tree for inherited boxes.
const maxParentDepth = 32

// Opener satisfies compress.AnalysisOpener.
type Opener struct{}

func NewOpener() *Opener { return &Opener{} }

// Open parses data. The reader keeps data for the lifetime of the document.
func (o *Opener) Open(data []byte) (compress.AnalysisDocument, error) {
	if len(data) == 0 {
		return nil, errors.New("empty document")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &document{r: r}, nil
}

type document struct {
	r *pdf.Reader
}

func (d *document) NumPages() int { return d.r.NumPage() }

func (d *document) Page(index int) (compress.AnalysisPage, error) {
	p := d.r.Page(index + 1)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", index+1)
	}
	return &page{p: p}, nil
}

func (d *document) Close() error { return nil }

type page struct {
	p pdf.Page
}

// Size returns the crop box, falling back to the media box, at scale 1.
// A page without a usable box has zero size.
func (pg *page) Size() compress.Size {
	for _, key := range []string{"CropBox", "MediaBox"} {
		if s, ok := inheritedBox(pg.p.V, key); ok {
			return s
		}
	}
	return compress.Size{}
}

// TextItems returns one item per positioned glyph run. The parser panics on
// some malformed content streams; that is reported as an error.
func (pg *page) TextItems() (items []compress.TextItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("content stream: %v", r)
		}
	}()
	content := pg.p.Content()
	items = make([]compress.TextItem, 0, len(content.Text))
	for _, t := range content.Text {
		items = append(items, compress.TextItem{Width: t.W, Height: t.FontSize})
	}
	return items, nil
}

func inheritedBox(v pdf.Value, key string) (compress.Size, bool) {
	for depth := 0; depth < maxParentDepth && !v.IsNull(); depth++ {
		box := v.Key(key)
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
			h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
			return compress.Size{Width: w, Height: h}, true
		}
		v = v.Key("Parent")
	}
	return compress.Size{}, false
}
