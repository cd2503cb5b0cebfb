// Package assembly builds and rewrites PDF documents with pdfcpu.
package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"

	"github.com/local/filemend/internal/compress"
)

// Assembler implements compress.Assembler and the page extraction used by split.
type Assembler struct{}

func New() *Assembler { return &Assembler{} }

// newConfig returns a relaxed configuration that writes object and xref streams.
// pdfcpu mutates the configuration during a run, so each call gets its own.
func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true
	return conf
}

// Optimize reloads src and writes it back with object streams. Form field
// appearances are left as they are.
func (a *Assembler) Optimize(_ context.Context, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(src), &buf, newConfig()); err != nil {
		return nil, fmt.Errorf("pdfcpu optimize: %w", err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages in src.
func (a *Assembler) PageCount(_ context.Context, src []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(src), newConfig())
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// PageDims returns the size of every page of src in points, rotation applied.
func (a *Assembler) PageDims(_ context.Context, src []byte) ([]compress.Size, error) {
	dims, err := api.PageDims(bytes.NewReader(src), newConfig())
	if err != nil {
		return nil, fmt.Errorf("pdf page dims failed: %w", err)
	}
	sizes := make([]compress.Size, len(dims))
	for i, d := range dims {
		sizes[i] = compress.Size{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// ExtractPages writes a new document holding the given 0-based pages of src in
// ascending order.
func (a *Assembler) ExtractPages(_ context.Context, src []byte, pages []int) ([]byte, error) {
	sel := Selection(pages)
	if len(sel) == 0 {
		return nil, errors.New("no pages selected")
	}
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(src), &buf, sel, newConfig()); err != nil {
		return nil, fmt.Errorf("pdfcpu trim %v: %w", sel, err)
	}
	return buf.Bytes(), nil
}

// ImagePage writes a one-page document whose page is size points large and is
// covered by the JPEG.
func (a *Assembler) ImagePage(_ context.Context, jpeg []byte, size compress.Size) ([]byte, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %vx%v", size.Width, size.Height)
	}
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = &types.Dim{Width: size.Width, Height: size.Height}
	imp.UserDim = true
	imp.Pos = types.Center
	imp.Scale = 1.0
	imp.ScaleAbs = false
	imp.InpUnit = types.POINTS

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, []io.Reader{bytes.NewReader(jpeg)}, imp, newConfig()); err != nil {
		return nil, fmt.Errorf("pdfcpu import image: %w", err)
	}
	return buf.Bytes(), nil
}

// Merge concatenates documents in order and optimizes the result.
func (a *Assembler) Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	switch len(docs) {
	case 0:
		return nil, errors.New("nothing to merge")
	case 1:
		return a.Optimize(ctx, docs[0])
	}
	rs := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		rs[i] = bytes.NewReader(d)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(rs, &buf, false, newConfig()); err != nil {
		return nil, fmt.Errorf("pdfcpu merge: %w", err)
	}
	return a.Optimize(ctx, buf.Bytes())
}

// NewDocument starts an output document whose copied pages come from src.
func (a *Assembler) NewDocument(_ context.Context, src []byte) (compress.DocumentBuilder, error) {
	if len(src) == 0 {
		return nil, errors.New("empty source document")
	}
	return &builder{asm: a, src: src}, nil
}

// part is either a run of source pages or one image page.
type part struct {
	pages []int
	jpeg  []byte
	size  compress.Size
}

// builder records pages and renders them on Save. Consecutive CopyPage calls
// share one trim of the source.
type builder struct {
	asm   *Assembler
	src   []byte
	parts []part
}

func (b *builder) CopyPage(index int) error {
	if index < 0 {
		return fmt.Errorf("invalid page index %d", index)
	}
	if n := len(b.parts); n > 0 && b.parts[n-1].jpeg == nil {
		last := &b.parts[n-1]
		if index > last.pages[len(last.pages)-1] {
			last.pages = append(last.pages, index)
			return nil
		}
	}
	b.parts = append(b.parts, part{pages: []int{index}})
	return nil
}

func (b *builder) AddImagePage(jpeg []byte, size compress.Size) error {
	if len(jpeg) == 0 {
		return errors.New("empty image")
	}
	b.parts = append(b.parts, part{jpeg: jpeg, size: size})
	return nil
}

func (b *builder) Save(ctx context.Context) ([]byte, error) {
	if len(b.parts) == 0 {
		return nil, errors.New("document has no pages")
	}
	docs := make([][]byte, 0, len(b.parts))
	for i, p := range b.parts {
		var (
			out []byte
			err error
		)
		if p.jpeg != nil {
			out, err = b.asm.ImagePage(ctx, p.jpeg, p.size)
		} else {
			out, err = b.asm.ExtractPages(ctx, b.src, p.pages)
		}
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i+1, err)
		}
		docs = append(docs, out)
	}
	log.Debug().Int("parts", len(docs)).Msg("merging output document")
	return b.asm.Merge(ctx, docs)
}
