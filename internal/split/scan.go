package split

import (
	"strings"
	"unicode/utf8"
)

// DefaultBlankThreshold is the number of characters below which a page counts
// as blank.
const DefaultBlankThreshold = 50

// PageScan is the text measurement of one page.
type PageScan struct {
	PageIndex int    `json:"page_index"`
	CharCount int    `json:"char_count"`
	Blank     bool   `json:"blank"`
	Text      string `json:"-"`
}

// ScanPages measures each page's trimmed text. A non-positive threshold means
// DefaultBlankThreshold.
func ScanPages(texts []string, threshold int) []PageScan {
	if threshold <= 0 {
		threshold = DefaultBlankThreshold
	}
	out := make([]PageScan, len(texts))
	for i, t := range texts {
		n := utf8.RuneCountInString(strings.TrimSpace(t))
		out[i] = PageScan{PageIndex: i, CharCount: n, Blank: n < threshold, Text: t}
	}
	return out
}
