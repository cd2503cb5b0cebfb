package compress

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// Mode is the document-level compression strategy.
type Mode string

const (
	ModeLossless Mode = "lossless"
	ModeImage    Mode = "image"
	ModeHybrid   Mode = "hybrid"
)

// Decision boundaries on the share of text-heavy pages. Both are inclusive.
const (
	LosslessTextRatio = 0.80
	ImageTextRatio    = 0.20
)

// ModeForRatio applies the decision table top-down.
func ModeForRatio(textRatio float64) Mode {
	switch {
	case textRatio >= LosslessTextRatio:
		return ModeLossless
	case textRatio <= ImageTextRatio:
		return ModeImage
	default:
		return ModeHybrid
	}
}

// Analysis is the outcome of classifying every page of a document.
type Analysis struct {
	Mode      Mode
	Pages     []PageClass
	TextHeavy int
	// Sizes holds the exact page boxes read during analysis, in points.
	Sizes []Size
}

// TextRatio is the share of text-heavy pages.
func (a Analysis) TextRatio() float64 {
	if len(a.Pages) == 0 {
		return 1
	}
	return float64(a.TextHeavy) / float64(len(a.Pages))
}

// PageClass returns the verdict for page index. Pages the analysis never saw
// are treated as text-heavy.
func (a Analysis) PageClass(index int) PageClass {
	if index < 0 || index >= len(a.Pages) {
		return TextHeavy
	}
	return a.Pages[index]
}

// PageSize refines rendered, the whole-point size a render engine reports for
// page index, with the fractional size read during analysis. The analysis size
// is used when it is within a point of rendered, swapped for rotated pages.
func (a Analysis) PageSize(index int, rendered Size) Size {
	if index < 0 || index >= len(a.Sizes) {
		return rendered
	}
	exact := a.Sizes[index]
	switch {
	case near(exact.Width, rendered.Width) && near(exact.Height, rendered.Height):
		return exact
	case near(exact.Height, rendered.Width) && near(exact.Width, rendered.Height):
		return Size{Width: exact.Height, Height: exact.Width}
	}
	return rendered
}

func near(a, b float64) bool { return math.Abs(a-b) <= 1 }

// Analyzer picks a Mode for a whole document.
type Analyzer struct {
	opener    AnalysisOpener
	threshold float64
}

// NewAnalyzer returns an analyzer; a non-positive threshold selects DefaultAreaRatioThreshold.
func NewAnalyzer(opener AnalysisOpener, threshold float64) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultAreaRatioThreshold
	}
	return &Analyzer{opener: opener, threshold: threshold}
}

// Analyze classifies pages in order. Any extraction failure yields a lossless
// Analysis together with an error wrapping ErrAnalysisDegraded.
func (a *Analyzer) Analyze(_ context.Context, data []byte) (res Analysis, err error) {
	fallback := Analysis{Mode: ModeLossless}
	defer func() {
		if r := recover(); r != nil {
			res, err = fallback, fmt.Errorf("%w: parser panic: %v", ErrAnalysisDegraded, r)
		}
	}()

	doc, err := a.opener.Open(data)
	if err != nil {
		return fallback, fmt.Errorf("%w: open: %w", ErrAnalysisDegraded, err)
	}
	defer doc.Close()

	n := doc.NumPages()
	if n == 0 {
		return fallback, nil
	}
	res.Pages = make([]PageClass, 0, n)
	res.Sizes = make([]Size, 0, n)
	for i := 0; i < n; i++ {
		page, err := doc.Page(i)
		if err != nil {
			return fallback, fmt.Errorf("%w: page %d: %w", ErrAnalysisDegraded, i+1, err)
		}
		m, err := MeasurePage(page)
		if err != nil {
			return fallback, fmt.Errorf("%w: page %d text: %w", ErrAnalysisDegraded, i+1, err)
		}
		class := ClassifyMetrics(m, a.threshold)
		if class == TextHeavy {
			res.TextHeavy++
		}
		res.Pages = append(res.Pages, class)
		res.Sizes = append(res.Sizes, page.Size())
		log.Debug().
			Int("page", i+1).
			Float64("page_area", m.PageArea).
			Float64("text_area", m.TextArea).
			Str("class", class.String()).
			Msg("page classified")
	}
	res.Mode = ModeForRatio(res.TextRatio())
	return res, nil
}
