package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortByType      SortField = "type"
	SortByTitle     SortField = "title"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options (newest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByTimestamp,
		Order: SortDesc,
	}
}

// Sort sorts entries in place. Ties keep journal order.
func Sort(entries []model.Entry, opts SortOptions) {
	if len(entries) == 0 {
		return
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		var less, equal bool

		switch opts.Field {
		case SortByType:
			less, equal = a.Type < b.Type, a.Type == b.Type
		case SortByTitle:
			ta, tb := strings.ToLower(a.Title()), strings.ToLower(b.Title())
			less, equal = ta < tb, ta == tb
		default:
			less, equal = a.Timestamp < b.Timestamp, a.Timestamp == b.Timestamp
		}

		if opts.Order == SortDesc {
			return !less && !equal
		}
		return less
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timestamp", "time", "t", "":
		return SortByTimestamp, nil
	case "type", "y":
		return SortByType, nil
	case "title", "summary", "s":
		return SortByTitle, nil
	default:
		return SortByTimestamp, fmt.Errorf("invalid sort field: %s (use timestamp, type or title)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d", "":
		return SortDesc, nil
	default:
		return SortDesc, fmt.Errorf("invalid sort order: %s (use asc or desc)", s)
	}
}
