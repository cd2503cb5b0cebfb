package assembly

import (
	"fmt"
	"sort"
)

// Selection turns 0-based page indexes into pdfcpu page selection terms
// ("1-3", "5"), merging consecutive pages. Negative and duplicate indexes are dropped.
func Selection(pages []int) []string {
	uniq := make([]int, 0, len(pages))
	seen := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p < 0 {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		uniq = append(uniq, p)
	}
	sort.Ints(uniq)

	var out []string
	for i := 0; i < len(uniq); {
		j := i
		for j+1 < len(uniq) && uniq[j+1] == uniq[j]+1 {
			j++
		}
		if i == j {
			out = append(out, fmt.Sprintf("%d", uniq[i]+1))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", uniq[i]+1, uniq[j]+1))
		}
		i = j + 1
	}
	return out
}
