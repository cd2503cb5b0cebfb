package split

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Bookmark is an outline entry pointing at a 1-based page.
type Bookmark struct {
	Title string `json:"title"`
	Level int    `json:"level"`
	Page  int    `json:"page"`
}

// EveryN cuts the document into consecutive chunks of n pages.
func EveryN(in Info, n int) ([]Group, error) {
	if n < 1 {
		return nil, ErrBadCount
	}
	var groups []Group
	for i := 0; i < in.TotalPages; i += n {
		pages := pageRange(i, min(i+n, in.TotalPages))
		groups = append(groups, in.group(fmt.Sprintf("n-group-%d", i), sectionName(len(groups)+1), "", pages))
	}
	return groups, nil
}

// BySize cuts the document into chunks whose prorated size is about targetMB.
func BySize(in Info, targetMB float64) ([]Group, error) {
	if !(targetMB > 0) || math.IsInf(targetMB, 1) {
		return nil, ErrBadSize
	}
	if in.TotalPages <= 0 {
		return nil, nil
	}
	avg := float64(in.FileSize) / float64(in.TotalPages)
	per := 1
	if avg > 0 {
		per = max(int(math.Floor(targetMB*1024*1024/avg)), 1)
	}
	label := strconv.FormatFloat(targetMB, 'f', -1, 64)
	var groups []Group
	for i := 0; i < in.TotalPages; i += per {
		pages := pageRange(i, min(i+per, in.TotalPages))
		name := fmt.Sprintf("%s (~%sMB)", sectionName(len(groups)+1), label)
		groups = append(groups, in.group(fmt.Sprintf("size-group-%d", i), name, "", pages))
	}
	return groups, nil
}

// ByBookmarks starts a group at every distinct bookmarked page.
func ByBookmarks(in Info, marks []Bookmark) ([]Group, error) {
	valid := make([]Bookmark, 0, len(marks))
	for _, m := range marks {
		if m.Page > 0 && m.Page <= in.TotalPages {
			valid = append(valid, m)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Page < valid[j].Page })

	uniq := valid[:0]
	for _, m := range valid {
		if len(uniq) > 0 && uniq[len(uniq)-1].Page == m.Page {
			continue
		}
		uniq = append(uniq, m)
	}
	if len(uniq) == 0 {
		return nil, ErrNoBookmarks
	}

	groups := make([]Group, 0, len(uniq))
	for i, m := range uniq {
		end := in.TotalPages
		if i+1 < len(uniq) {
			end = uniq[i+1].Page - 1
		}
		name := strings.TrimSpace(m.Title)
		if name == "" {
			name = sectionName(i + 1)
		}
		groups = append(groups, in.group(fmt.Sprintf("bookmark-group-%d", i), name, "bookmark: "+m.Title, pageRange(m.Page-1, end)))
	}
	return groups, nil
}

// ByBlank starts a new group at every blank page that follows a non-blank one.
func ByBlank(in Info, scans []PageScan) ([]Group, error) {
	var points []int
	for i := 1; i < len(scans); i++ {
		if scans[i].Blank && !scans[i-1].Blank {
			points = append(points, i)
		}
	}
	if len(points) == 0 {
		return nil, ErrNoSplitPoints
	}
	return cutAt(in, points, "blank-group", func(p int) string {
		return fmt.Sprintf("blank page %d", p+1)
	}), nil
}

// ByPattern starts a new group at every page after the first whose text
// matches pattern, case-insensitively.
func ByPattern(in Info, scans []PageScan, pattern string) ([]Group, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, ErrNoPattern
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	var points []int
	for i := 1; i < len(scans); i++ {
		if re.MatchString(scans[i].Text) {
			points = append(points, i)
		}
	}
	if len(points) == 0 {
		return nil, ErrNoPatternMatches
	}
	return cutAt(in, points, "pattern-group", func(p int) string {
		return fmt.Sprintf("pattern match on page %d", p+1)
	}), nil
}

// cutAt splits [0, total) before each point. The trailing group is the remainder.
func cutAt(in Info, points []int, prefix string, reason func(int) string) []Group {
	groups := make([]Group, 0, len(points)+1)
	start := 0
	for i, p := range points {
		if pages := pageRange(start, p); len(pages) > 0 {
			groups = append(groups, in.group(fmt.Sprintf("%s-%d", prefix, i), sectionName(i+1), reason(p), pages))
		}
		start = p
	}
	if start < in.TotalPages {
		n := len(points)
		groups = append(groups, in.group(fmt.Sprintf("%s-%d", prefix, n), sectionName(n+1), "last section", pageRange(start, in.TotalPages)))
	}
	return groups
}

// ByRanges turns a list such as "1-3,5,8-10" into one group per item. A page
// belongs to the first item that claims it. Pages no item claims are collected
// into a trailing group.
func ByRanges(in Info, list string) ([]Group, error) {
	if strings.TrimSpace(list) == "" {
		return nil, ErrNoRanges
	}
	var items []string
	for _, it := range strings.Split(list, ",") {
		if it = strings.TrimSpace(it); it != "" {
			items = append(items, it)
		}
	}

	used := make(map[int]bool)
	claim := func(p int, into []int) []int {
		if used[p] {
			return into
		}
		used[p] = true
		return append(into, p)
	}

	var groups []Group
	for i, item := range items {
		var pages []int
		if strings.Contains(item, "-") {
			bounds := strings.Split(item, "-")
			start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 == nil && err2 == nil {
				for p := max(0, start-1); p <= min(end-1, in.TotalPages-1); p++ {
					pages = claim(p, pages)
				}
			}
		} else if n, err := strconv.Atoi(item); err == nil && n >= 1 && n <= in.TotalPages {
			pages = claim(n-1, pages)
		}
		if len(pages) > 0 {
			sort.Ints(pages)
			groups = append(groups, in.group(fmt.Sprintf("range-group-%d", i), fmt.Sprintf("Group %d", i+1), "range "+item, pages))
		}
	}

	var rest []int
	for p := 0; p < in.TotalPages; p++ {
		if !used[p] {
			rest = append(rest, p)
		}
	}
	if len(rest) > 0 && len(groups) > 0 {
		groups = append(groups, in.group("range-group-unused", "Unassigned pages", "unassigned", rest))
	}
	if len(groups) == 0 {
		return nil, ErrNoValidRanges
	}
	return groups, nil
}

// Manual makes one group out of an explicit page selection.
func Manual(in Info, pages []int, name string) ([]Group, error) {
	sel := normalizePages(pages, in.TotalPages)
	if len(sel) == 0 {
		return nil, ErrEmptySelection
	}
	if strings.TrimSpace(name) == "" {
		name = sectionName(1)
	}
	return []Group{in.group("group-manual", name, "manual", sel)}, nil
}
