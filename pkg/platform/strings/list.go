// Package strings holds the list normalisation shared by config parsing and
// token claims.
package strings

import (
	"strings"
)

// SplitList splits raw on sep and returns the trimmed, non-empty parts in
// their first-seen order without repeats.
//
//	SplitList(" kafka-1:9092, ,kafka-2:9092,kafka-1:9092", ",")
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(raw, sep string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return normalize(strings.Split(raw, sep), strings.TrimSpace)
}

// NormalizeGroups trims and lowercases group names so membership checks are
// case-insensitive. Empty entries and repeats are dropped.
func NormalizeGroups(groups []string) []string {
	return normalize(groups, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func normalize(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = fold(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
