// Package catalog filters in-memory catalog listings.
package catalog

import (
	"strings"

	"medcenter/internal/models"
)

// Filterable is anything a listing page can search and group.
type Filterable interface {
	FilterName() string
	FilterDescription() string
	FilterCategory() string
}

// Filter returns the items whose name or description contains query
// (case-insensitive) and whose category equals category. An empty query or a
// category of "All" (or "") disables that predicate. Input order is kept.
func Filter[T Filterable](items []T, query, category string) []T {
	q := strings.ToLower(query)
	c := category
	if q == "" && isAll(c) {
		return items
	}

	out := make([]T, 0, len(items))
	for _, it := range items {
		if !isAll(c) && it.FilterCategory() != c {
			continue
		}
		if q != "" && !matches(it, q) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Categories lists distinct categories in first-seen order, prefixed by "All".
func Categories[T Filterable](items []T) []string {
	seen := make(map[string]bool, len(items))
	out := []string{models.CategoryAll}
	for _, it := range items {
		c := it.FilterCategory()
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func isAll(category string) bool {
	return category == "" || category == models.CategoryAll
}

func matches(it Filterable, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(it.FilterName()), lowerQuery) ||
		strings.Contains(strings.ToLower(it.FilterDescription()), lowerQuery)
}
