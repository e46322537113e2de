package util

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxRangeValues bounds how many values one range specification may expand to.
const MaxRangeValues = 1024

// ExpandRange expands a range specification into individual values:
//   - "1-5" -> [1, 2, 3, 4, 5]
//   - "1-3,49,51-52" -> [1, 2, 3, 49, 51, 52]
//
// A specification expanding to more than MaxRangeValues values is rejected.
func ExpandRange(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}

	var result []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			val, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value: %s", part)
			}
			if len(result) >= MaxRangeValues {
				return nil, fmt.Errorf("range specification expands past %d values", MaxRangeValues)
			}
			result = append(result, val)
			continue
		}

		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid start value in range %s: %v", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid end value in range %s: %v", part, err)
		}
		if start > end {
			return nil, fmt.Errorf("start value %d greater than end value %d in range %s", start, end, part)
		}
		if end-start >= MaxRangeValues-len(result) {
			return nil, fmt.Errorf("range %s expands past %d values", part, MaxRangeValues)
		}
		for i := start; i <= end; i++ {
			result = append(result, i)
		}
	}

	sort.Ints(result)
	return dedupInts(result), nil
}

// CompactRange compacts a list of integers into range notation
// [1, 2, 3, 49, 51, 52] -> "1-3,49,51-52"
func CompactRange(values []int) string {
	if len(values) == 0 {
		return ""
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	sorted = dedupInts(sorted)

	var parts []string
	start, end := sorted[0], sorted[0]
	for _, v := range sorted[1:] {
		if v == end+1 {
			end = v
			continue
		}
		parts = append(parts, formatRange(start, end))
		start, end = v, v
	}
	parts = append(parts, formatRange(start, end))

	return strings.Join(parts, ",")
}

// PortNumber returns the leading decimal number of a switch port identifier.
// Stacked and module ports ("1_MA-MOD-8X10G_3") yield the number before the
// first non-digit; identifiers without a leading number report ok=false.
func PortNumber(portID string) (n int, ok bool) {
	portID = strings.TrimSpace(portID)
	end := 0
	for end < len(portID) && portID[end] >= '0' && portID[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(portID[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatRange(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func dedupInts(sorted []int) []int {
	if len(sorted) == 0 {
		return sorted
	}
	result := []int{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			result = append(result, sorted[i])
		}
	}
	return result
}
