package geometry

import (
	"sort"
	"strconv"
	"strings"
)

// ParsePageRange turns user input such as "1-5,8;10-12" into sorted,
// de-duplicated 0-based page indices. Tokens are 1-based page numbers or
// a-b ranges in either order; bounds past the second are ignored. Range ends are clamped into [1, totalPages];
// single pages outside it and unparsable tokens are skipped. An empty result
// means nothing was selected.
func ParsePageRange(spec string, totalPages int) []int {
	seen := make(map[int]struct{})
	tokens := strings.FieldsFunc(spec, func(r rune) bool { return r == ',' || r == ';' })
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if bounds := strings.Split(tok, "-"); len(bounds) > 1 {
			start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
			end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if err1 != nil || err2 != nil {
				continue
			}
			if start > end {
				start, end = end, start
			}
			if start < 1 {
				start = 1
			}
			if end > totalPages {
				end = totalPages
			}
			for p := start; p <= end; p++ {
				seen[p-1] = struct{}{}
			}
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > totalPages {
			continue
		}
		seen[n-1] = struct{}{}
	}

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// AllPages returns 0..n-1.
func AllPages(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
