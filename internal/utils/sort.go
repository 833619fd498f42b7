package utils

import (
	"sort"
	"time"
)

// SortByTime orders items by the timestamp at returns. The sort is stable so
// items sharing a timestamp keep their incoming order.
func SortByTime[T any](items []T, at func(T) time.Time, asc bool) []T {
	sort.SliceStable(items, func(i, j int) bool {
		if asc {
			return at(items[i]).Before(at(items[j]))
		}
		return at(items[i]).After(at(items[j]))
	})
	return items
}
