package compress

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

type fakePage struct {
	size      Size
	items     []TextItem
	err       error
	textCalls int
}

func (p *fakePage) Size() Size { return p.size }

func (p *fakePage) TextItems() ([]TextItem, error) {
	p.textCalls++
	return p.items, p.err
}

func textPage() *fakePage {
	return &fakePage{size: Size{Width: 100, Height: 100}, items: []TextItem{{Width: 100, Height: 100}}}
}

func photoPage() *fakePage {
	return &fakePage{size: Size{Width: 100, Height: 100}}
}

type fakeAnalysisDoc struct {
	pages  []*fakePage
	closed bool
}

func (d *fakeAnalysisDoc) NumPages() int { return len(d.pages) }

func (d *fakeAnalysisDoc) Page(i int) (AnalysisPage, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", i)
	}
	return d.pages[i], nil
}

func (d *fakeAnalysisDoc) Close() error { d.closed = true; return nil }

type fakeAnalysisOpener struct {
	doc      *fakeAnalysisDoc
	err      error
	scribble bool
}

func (o *fakeAnalysisOpener) Open(data []byte) (AnalysisDocument, error) {
	if o.scribble {
		for i := range data {
			data[i] = 0
		}
	}
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

func analysisOf(pages ...*fakePage) *fakeAnalysisOpener {
	return &fakeAnalysisOpener{doc: &fakeAnalysisDoc{pages: pages}}
}

type fakeRenderer struct {
	pages     int
	renderErr map[int]error
	opened    []byte
	closed    bool
}

func (r *fakeRenderer) NumPages() int { return r.pages }

func (r *fakeRenderer) PageSize(i int) (Size, error) {
	return Size{Width: 612, Height: 792}, nil
}

func (r *fakeRenderer) Render(i int, scale float64) (image.Image, error) {
	if err := r.renderErr[i]; err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 8, 10))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	return img, nil
}

func (r *fakeRenderer) Close() error { r.closed = true; return nil }

type fakeRenderOpener struct {
	r   *fakeRenderer
	err error
}

func (o *fakeRenderOpener) Open(data []byte) (PageRenderer, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.r.opened = data
	return o.r, nil
}

type fakeBuilder struct {
	ops     []string
	saveErr error
}

func (b *fakeBuilder) CopyPage(i int) error {
	b.ops = append(b.ops, fmt.Sprintf("copy:%d", i))
	return nil
}

func (b *fakeBuilder) AddImagePage(jpeg []byte, size Size) error {
	if len(jpeg) == 0 {
		return errors.New("empty image")
	}
	b.ops = append(b.ops, fmt.Sprintf("image:%gx%g", size.Width, size.Height))
	return nil
}

func (b *fakeBuilder) Save(context.Context) ([]byte, error) {
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	return make([]byte, 10*len(b.ops)), nil
}

type fakeAssembler struct {
	optimized   []byte
	optimizeErr error
	pages       int
	builder     *fakeBuilder
	optimizeIn  []byte
	// panicOn makes the given Optimize call (1-based) panic.
	panicOn       int
	optimizeCalls int
}

func (a *fakeAssembler) Optimize(_ context.Context, src []byte) ([]byte, error) {
	a.optimizeCalls++
	if a.panicOn > 0 && a.optimizeCalls == a.panicOn {
		panic("xref table corrupted")
	}
	a.optimizeIn = src
	if a.optimizeErr != nil {
		return nil, a.optimizeErr
	}
	return a.optimized, nil
}

func (a *fakeAssembler) NewDocument(context.Context, []byte) (DocumentBuilder, error) {
	if a.builder == nil {
		a.builder = &fakeBuilder{}
	}
	return a.builder, nil
}

func (a *fakeAssembler) PageCount(context.Context, []byte) (int, error) { return a.pages, nil }

// recordingEncoder captures encoder calls and can fail on a given call (1-based).
type recordingEncoder struct {
	calls     int
	failOn    int
	qualities []int
	last      image.Image
}

func (e *recordingEncoder) encode(w io.Writer, img image.Image, quality int) error {
	e.calls++
	e.qualities = append(e.qualities, quality)
	e.last = img
	if e.failOn > 0 && e.calls == e.failOn {
		return errors.New("boom")
	}
	_, err := w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	return err
}
