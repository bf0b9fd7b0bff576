package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NextCode returns the next free human-readable code for the given prefix,
// e.g. NextCode("RF", codes) -> "RF-004". The lowest unused positive integer
// is picked so that slots freed by deletions are reused before the sequence
// grows. Codes whose suffix does not parse as a positive integer are skipped.
func NextCode(prefix string, existing []string) string {
	nums := make([]int, 0, len(existing))
	for _, code := range existing {
		idx := strings.LastIndex(code, "-")
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(code[idx+1:])
		if err != nil || n < 1 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)

	next := 1
	for _, n := range nums {
		if n > next {
			break
		}
		if n == next {
			next++
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, next)
}
