package split

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/local/filemend/internal/compress"
)

func pagesOf(groups []Group) [][]int {
	out := make([][]int, len(groups))
	for i, g := range groups {
		out[i] = g.Pages
	}
	return out
}

func TestEveryN(t *testing.T) {
	in := Info{FileSize: 10 << 20, TotalPages: 7}
	groups, err := EveryN(in, 3)
	if err != nil {
		t.Fatalf("every n: %v", err)
	}
	want := [][]int{{0, 1, 2}, {3, 4, 5}, {6}}
	if !reflect.DeepEqual(pagesOf(groups), want) {
		t.Fatalf("expected %v, got %v", want, pagesOf(groups))
	}
	if groups[2].Name != "Section 3" || groups[1].ID != "n-group-3" {
		t.Fatalf("unexpected naming %+v", groups[2])
	}
	if math.Abs(groups[0].EstimatedSizeMB-30.0/7) > 1e-9 {
		t.Fatalf("unexpected estimate %v", groups[0].EstimatedSizeMB)
	}
	if _, err := EveryN(in, 0); !errors.Is(err, compress.ErrInvalidInput) {
		t.Fatalf("expected invalid input for n=0, got %v", err)
	}
}

func TestBySize(t *testing.T) {
	in := Info{FileSize: 10 << 20, TotalPages: 10}
	groups, err := BySize(in, 2.5)
	if err != nil {
		t.Fatalf("by size: %v", err)
	}
	want := [][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}}
	if !reflect.DeepEqual(pagesOf(groups), want) {
		t.Fatalf("expected %v, got %v", want, pagesOf(groups))
	}
	if groups[0].Name != "Section 1 (~2.5MB)" {
		t.Fatalf("unexpected name %q", groups[0].Name)
	}

	tiny, _ := BySize(in, 0.1)
	if len(tiny) != 10 {
		t.Fatalf("expected at least one page per group, got %d groups", len(tiny))
	}
	if _, err := BySize(in, 0); !errors.Is(err, ErrBadSize) {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestByBookmarks(t *testing.T) {
	in := Info{FileSize: 1000, TotalPages: 10}
	marks := []Bookmark{
		{Title: "Appendix", Page: 8},
		{Title: "Intro", Page: 1},
		{Title: "Intro again", Page: 1},
		{Title: "", Page: 4},
		{Title: "Out of range", Page: 11},
		{Title: "No target", Page: 0},
	}
	groups, err := ByBookmarks(in, marks)
	if err != nil {
		t.Fatalf("bookmarks: %v", err)
	}
	want := [][]int{{0, 1, 2}, {3, 4, 5, 6}, {7, 8, 9}}
	if !reflect.DeepEqual(pagesOf(groups), want) {
		t.Fatalf("expected %v, got %v", want, pagesOf(groups))
	}
	if groups[0].Name != "Intro" || groups[1].Name != "Section 2" || groups[2].Name != "Appendix" {
		t.Fatalf("unexpected names %q %q %q", groups[0].Name, groups[1].Name, groups[2].Name)
	}
	if _, err := ByBookmarks(in, []Bookmark{{Title: "x", Page: 99}}); !errors.Is(err, ErrNoBookmarks) {
		t.Fatalf("expected ErrNoBookmarks, got %v", err)
	}
}

func scansFor(texts ...string) []PageScan { return ScanPages(texts, 0) }

func TestByBlank(t *testing.T) {
	full := strings.Repeat("x", 80)
	scans := scansFor(full, full, "", "", full, "  \n ", full)
	groups, err := ByBlank(Info{TotalPages: 7}, scans)
	if err != nil {
		t.Fatalf("by blank: %v", err)
	}
	want := [][]int{{0, 1}, {2, 3, 4}, {5, 6}}
	if !reflect.DeepEqual(pagesOf(groups), want) {
		t.Fatalf("expected %v, got %v", want, pagesOf(groups))
	}
	if groups[0].Reason != "blank page 3" || groups[2].Reason != "last section" {
		t.Fatalf("unexpected reasons %q %q", groups[0].Reason, groups[2].Reason)
	}

	if _, err := ByBlank(Info{TotalPages: 3}, scansFor("", full, full)); !errors.Is(err, ErrNoSplitPoints) {
		t.Fatalf("a leading blank page is not a split point, got %v", err)
	}
}

func TestScanPagesThreshold(t *testing.T) {
	p := ScanPages([]string{"  short  ", strings.Repeat("é", 50)}, 0)
	if !p[0].Blank || p[0].CharCount != 5 {
		t.Fatalf("unexpected scan %+v", p[0])
	}
	if p[1].Blank || p[1].CharCount != 50 {
		t.Fatalf("50 runes should meet the default threshold, got %+v", p[1])
	}
	if p := ScanPages([]string{"short"}, 3); p[0].Blank {
		t.Fatalf("custom threshold ignored")
	}
}

func TestByPattern(t *testing.T) {
	scans := scansFor("Title page", "CHAPTER 1 begins", "more", "chapter 2", "end")
	groups, err := ByPattern(Info{TotalPages: 5}, scans, `chapter \d+`)
	if err != nil {
		t.Fatalf("by pattern: %v", err)
	}
	want := [][]int{{0}, {1, 2}, {3, 4}}
	if !reflect.DeepEqual(pagesOf(groups), want) {
		t.Fatalf("expected %v, got %v", want, pagesOf(groups))
	}

	if _, err := ByPattern(Info{TotalPages: 5}, scans, "  "); !errors.Is(err, ErrNoPattern) {
		t.Fatalf("expected ErrNoPattern, got %v", err)
	}
	if _, err := ByPattern(Info{TotalPages: 5}, scans, "("); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
	if _, err := ByPattern(Info{TotalPages: 5}, scans, "appendix"); !errors.Is(err, ErrNoPatternMatches) {
		t.Fatalf("expected ErrNoPatternMatches, got %v", err)
	}
	if _, err := ByPattern(Info{TotalPages: 5}, scans, "title"); !errors.Is(err, ErrNoPatternMatches) {
		t.Fatalf("a match on the first page is not a split point, got %v", err)
	}
}

func TestByRanges(t *testing.T) {
	in := Info{TotalPages: 10}
	groups, err := ByRanges(in, " 1-3, 2-5 ,x, 9, 8-20,")
	if err != nil {
		t.Fatalf("by ranges: %v", err)
	}
	want := [][]int{{0, 1, 2}, {3, 4}, {8}, {7, 9}, {5, 6}}
	if !reflect.DeepEqual(pagesOf(groups), want) {
		t.Fatalf("expected %v, got %v", want, pagesOf(groups))
	}
	if groups[2].Name != "Group 4" || groups[4].Name != "Unassigned pages" {
		t.Fatalf("unexpected names %q %q", groups[2].Name, groups[4].Name)
	}

	if _, err := ByRanges(in, "  "); !errors.Is(err, ErrNoRanges) {
		t.Fatalf("expected ErrNoRanges, got %v", err)
	}
	if _, err := ByRanges(in, "0, 11, a-b"); !errors.Is(err, ErrNoValidRanges) {
		t.Fatalf("expected ErrNoValidRanges, got %v", err)
	}
}

func TestManual(t *testing.T) {
	groups, err := Manual(Info{TotalPages: 5}, []int{4, 1, 1, 9, -1}, "")
	if err != nil {
		t.Fatalf("manual: %v", err)
	}
	if !reflect.DeepEqual(groups[0].Pages, []int{1, 4}) || groups[0].Name != "Section 1" {
		t.Fatalf("unexpected group %+v", groups[0])
	}
	if _, err := Manual(Info{TotalPages: 5}, []int{7}, "x"); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	groups, err := Normalize(Info{TotalPages: 4}, []Group{
		{Name: "", Pages: []int{3, 3, 0}},
		{Name: "gone", Pages: []int{8}},
		{ID: "keep", Name: " b ", Pages: []int{1}},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "Section 1" || groups[1].Name != "b" || groups[1].ID != "keep" {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if !reflect.DeepEqual(groups[0].Pages, []int{0, 3}) {
		t.Fatalf("unexpected pages %v", groups[0].Pages)
	}
	if _, err := Normalize(Info{TotalPages: 4}, nil); !errors.Is(err, ErrNoGroups) {
		t.Fatalf("expected ErrNoGroups, got %v", err)
	}
}
