package compress

import (
	"fmt"
	"math"
)

// DefaultAreaRatioThreshold is the text/page area ratio at or above which a page is text-heavy.
const DefaultAreaRatioThreshold = 0.15

// PageClass is the per-page verdict.
type PageClass int

const (
	TextHeavy PageClass = iota
	ImageHeavy
)

func (c PageClass) String() string {
	switch c {
	case TextHeavy:
		return "text_heavy"
	case ImageHeavy:
		return "image_heavy"
	default:
		return fmt.Sprintf("PageClass(%d)", int(c))
	}
}

// PageMetrics holds the areas a classification is derived from.
type PageMetrics struct {
	PageArea float64
	TextArea float64
}

// Ratio returns TextArea/PageArea, or 0 for a degenerate page.
func (m PageMetrics) Ratio() float64 {
	if !(m.PageArea > 0) {
		return 0
	}
	return m.TextArea / m.PageArea
}

// ClassifyMetrics is the pure decision. Degenerate pages stay text-heavy so they
// are never rasterized.
func ClassifyMetrics(m PageMetrics, threshold float64) PageClass {
	if !(m.PageArea > 0) {
		return TextHeavy
	}
	if m.Ratio() >= threshold {
		return TextHeavy
	}
	return ImageHeavy
}

// TextArea sums width*height over items with usable geometry.
func TextArea(items []TextItem) float64 {
	var sum float64
	for _, it := range items {
		if !usable(it.Width) || !usable(it.Height) {
			continue
		}
		sum += it.Width * it.Height
	}
	return sum
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// MeasurePage computes metrics for p. Text is not extracted for degenerate pages.
func MeasurePage(p AnalysisPage) (PageMetrics, error) {
	m := PageMetrics{PageArea: p.Size().Area()}
	if !(m.PageArea > 0) {
		return m, nil
	}
	items, err := p.TextItems()
	if err != nil {
		return m, err
	}
	m.TextArea = TextArea(items)
	return m, nil
}

// ClassifyPage measures and classifies one page.
func ClassifyPage(p AnalysisPage, threshold float64) (PageClass, error) {
	m, err := MeasurePage(p)
	if err != nil {
		return TextHeavy, err
	}
	return ClassifyMetrics(m, threshold), nil
}
