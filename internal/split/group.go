// Package split plans page groups for a PDF and extracts each group into its
// own document.
package split

import (
	"fmt"
	"sort"

	"github.com/local/filemend/internal/compress"
)

var (
	ErrNoBookmarks      = fmt.Errorf("%w: document has no usable bookmarks", compress.ErrInvalidInput)
	ErrNoSplitPoints    = fmt.Errorf("%w: no blank page split points found", compress.ErrInvalidInput)
	ErrNoPattern        = fmt.Errorf("%w: no pattern provided", compress.ErrInvalidInput)
	ErrInvalidPattern   = fmt.Errorf("%w: invalid pattern", compress.ErrInvalidInput)
	ErrNoPatternMatches = fmt.Errorf("%w: pattern matched no page", compress.ErrInvalidInput)
	ErrNoRanges         = fmt.Errorf("%w: no page ranges provided", compress.ErrInvalidInput)
	ErrNoValidRanges    = fmt.Errorf("%w: no valid page ranges", compress.ErrInvalidInput)
	ErrEmptySelection   = fmt.Errorf("%w: no pages selected", compress.ErrInvalidInput)
	ErrNoGroups         = fmt.Errorf("%w: no groups to split", compress.ErrInvalidInput)
	ErrEmptyDocument    = fmt.Errorf("%w: document has no pages", compress.ErrInvalidInput)
	ErrBadCount         = fmt.Errorf("%w: page count must be at least 1", compress.ErrInvalidInput)
	ErrBadSize          = fmt.Errorf("%w: target size must be positive", compress.ErrInvalidInput)
)

// Group is a named set of 0-based page indexes that becomes one output file.
type Group struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Pages           []int   `json:"pages"`
	EstimatedSizeMB float64 `json:"estimated_size_mb"`
	Reason          string  `json:"reason,omitempty"`
}

// Info describes the source document a plan is computed for.
type Info struct {
	FileSize   int64
	TotalPages int
}

// EstimateMB prorates the file size by the share of pages in the group.
func (in Info) EstimateMB(pages int) float64 {
	if in.TotalPages <= 0 {
		return 0
	}
	return float64(in.FileSize) * float64(pages) / float64(in.TotalPages) / (1024 * 1024)
}

func (in Info) group(id, name, reason string, pages []int) Group {
	return Group{
		ID:              id,
		Name:            name,
		Pages:           pages,
		EstimatedSizeMB: in.EstimateMB(len(pages)),
		Reason:          reason,
	}
}

func sectionName(n int) string { return fmt.Sprintf("Section %d", n) }

// pageRange returns [start, end).
func pageRange(start, end int) []int {
	if end <= start {
		return nil
	}
	out := make([]int, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// normalizePages drops out-of-range and duplicate indexes and sorts the rest.
func normalizePages(pages []int, total int) []int {
	m := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p < 0 || p >= total {
			continue
		}
		m[p] = struct{}{}
	}
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
