package core

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NowFunc is mockable.
var NowFunc = time.Now

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return NowFunc().UnixNano() / int64(time.Millisecond)
}

// NewID returns a new opaque identifier.
func NewID() string {
	return uuid.New().String()
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanName trims s and collapses inner runs of whitespace to single spaces.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanStrings cleans every element of ss and drops empty and duplicate values, keeping the first occurrence.
func CleanStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = CleanString(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Round2 rounds f to 2 decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ClampLimit returns def when limit is not positive and max when it is larger than max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
