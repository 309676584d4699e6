package pricing

import (
	"strconv"
	"strings"
)

// CountColorPages counts the distinct valid page numbers referenced by a
// color-page spec such as "1,3,5-7". Ranges are inclusive. Malformed or
// out-of-bounds tokens are skipped rather than rejected, duplicates count
// once, and an empty spec counts zero pages.
func CountColorPages(spec string, totalPages int) int {
	spec = strings.TrimSpace(spec)
	if spec == "" || totalPages <= 0 {
		return 0
	}

	seen := make(map[int]struct{})
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(token, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				continue
			}
			// Clamp to the document before iterating; the bounds are user
			// input and an open-ended range must not spin.
			start = max(start, 1)
			end = min(end, totalPages)
			for page := start; page <= end; page++ {
				seen[page] = struct{}{}
			}
			continue
		}

		page, err := strconv.Atoi(token)
		if err != nil || page < 1 || page > totalPages {
			continue
		}
		seen[page] = struct{}{}
	}

	return len(seen)
}
