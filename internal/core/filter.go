// Package core provides filtering, sorting, and lookup over journal entries.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // type, style, client, title, artist, album, format, id, fullscreen, timestamp
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex       *regexp.Regexp
	intVal      int
	timestampOp time.Time
	boolVal     bool
}

// FilterExpr is a set of conditions ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies criteria for filtering entries.
type FilterOptions struct {
	Since time.Duration // Entries newer than now-since (0=all)
	Types []model.Type  // Any of these types (empty=any)
	Style string        // Exact match on effective style
	Limit int           // Maximum results (0=unlimited)
}

// Filter filters entries based on the provided options.
func Filter(entries []model.Entry, opts FilterOptions) []model.Entry {
	now := time.Now()
	result := make([]model.Entry, 0, len(entries))

	types := make(map[string]bool, len(opts.Types))
	for _, t := range opts.Types {
		types[t.String()] = true
	}

	for _, e := range entries {
		if opts.Since > 0 && e.TimestampTime().Before(now.Add(-opts.Since)) {
			continue
		}
		if len(types) > 0 && !types[e.Type] {
			continue
		}
		if opts.Style != "" && e.Style != opts.Style {
			continue
		}
		result = append(result, e)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseTypes parses a comma separated list of notification type names.
func ParseTypes(s string) ([]model.Type, error) {
	var types []model.Type
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := model.ParseType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
//
// Supported fields: type, style, client, title, artist, album, format, id,
// fullscreen, timestamp.
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "type=error" - error notifications
//   - "title~disk" - title contains "disk"
//   - "id>0" - notifications from registered producers
//   - "artist~=(?i)^the " - artist matches a regex
//   - "timestamp>1h" - entries from the last hour
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "type=error".
func parseCondition(s string) (FilterCondition, error) {
	// longest operators first so "!=" is not read as "="
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "type", "kind":
		c.Field = "type"
		if c.Operator == FilterOpEqual || c.Operator == FilterOpNotEqual {
			t, err := model.ParseType(c.Value)
			if err != nil {
				return err
			}
			c.Value = t.String()
		}
	case "style", "client", "title", "artist", "album", "format":
	case "summary":
		c.Field = "title"
	case "id":
		v, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid id value: %s", c.Value)
		}
		c.intVal = v
	case "fullscreen", "full":
		c.Field = "fullscreen"
		c.boolVal = parseBool(c.Value)
	case "timestamp", "time", "ts":
		c.Field = "timestamp"
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid timestamp value: %w", err)
		}
		c.timestampOp = time.Now().Add(-dur)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "y", "t":
		return true
	default:
		return false
	}
}

// Match tests if an entry matches every condition.
func (f *FilterExpr) Match(e model.Entry) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(e) {
			return false
		}
	}
	return true
}

// Match tests if an entry matches this single condition.
func (c *FilterCondition) Match(e model.Entry) bool {
	switch c.Field {
	case "type":
		return c.matchString(e.Type)
	case "style":
		return c.matchString(e.Style)
	case "client":
		return c.matchString(string(e.Client))
	case "title":
		return c.matchString(e.Metadata[model.MetaTitle])
	case "artist":
		return c.matchString(e.Metadata[model.MetaArtist])
	case "album":
		return c.matchString(e.Metadata[model.MetaAlbum])
	case "format":
		return c.matchString(e.Metadata[model.MetaFormat])
	case "id":
		return c.matchInt(e.ID)
	case "fullscreen":
		return c.matchBool(e.Fullscreen)
	case "timestamp":
		return c.matchTimestamp(e.TimestampTime())
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

func (c *FilterCondition) matchInt(fieldValue int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.intVal
	case FilterOpNotEqual:
		return fieldValue != c.intVal
	case FilterOpGreater:
		return fieldValue > c.intVal
	case FilterOpLess:
		return fieldValue < c.intVal
	case FilterOpGreaterEq:
		return fieldValue >= c.intVal
	case FilterOpLessEq:
		return fieldValue <= c.intVal
	default:
		return false
	}
}

func (c *FilterCondition) matchBool(fieldValue bool) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.boolVal
	case FilterOpNotEqual:
		return fieldValue != c.boolVal
	default:
		return false
	}
}

func (c *FilterCondition) matchTimestamp(fieldValue time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return fieldValue.After(c.timestampOp)
	case FilterOpLess:
		return fieldValue.Before(c.timestampOp)
	case FilterOpGreaterEq:
		return !fieldValue.Before(c.timestampOp)
	case FilterOpLessEq:
		return !fieldValue.After(c.timestampOp)
	default:
		return false
	}
}

// FilterWithExpr filters entries using a filter expression.
func FilterWithExpr(entries []model.Entry, expr *FilterExpr) []model.Entry {
	if expr == nil || len(expr.Conditions) == 0 {
		return entries
	}

	result := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if expr.Match(e) {
			result = append(result, e)
		}
	}
	return result
}
