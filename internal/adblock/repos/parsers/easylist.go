package parsers

import (
	"io"
	"strings"

	logpkg "github.com/haukened/adshield/internal/adblock/common/log"
)

// ParseEasyList extracts network block patterns from a restricted subset of
// the EasyList rule syntax.
//
// Skipped: empty lines, '!' comments, '[' section headers, cosmetic rules
// ("##" or "#@#") and '@@' exception rules. A "$options" suffix is dropped.
// For "||domain^" rules the anchor is removed, the value is cut at the first
// '/' and a trailing '^' is dropped, leaving the bare domain. Other rules lose
// leading and trailing '|' anchors and a trailing '^'.
//
// Parsing stops after max patterns (max <= 0 means unlimited). Duplicates are
// kept; the pattern compiler dedupes.
func ParseEasyList(r io.Reader, max int, logger logpkg.Logger) ([]string, error) {
	lines := newLineReader(r)
	out := make([]string, 0, 1024)

	lineNum := 0
	for lines.Next() {
		lineNum++
		if lines.TooLong() {
			logger.Debug(map[string]any{"line": lineNum, "reason": "too long"}, "easylist_skip")
			continue
		}
		rule := strings.TrimSpace(stripLineBOM(lines.Text()))
		if rule == "" {
			continue
		}
		if skip, reason := skipEasyListRule(rule); skip {
			logger.Debug(map[string]any{"line": lineNum, "reason": reason}, "easylist_skip")
			continue
		}

		pattern := easyListPattern(rule)
		if pattern == "" {
			logger.Debug(map[string]any{"line": lineNum, "raw": rule}, "easylist_skip_empty")
			continue
		}
		out = append(out, pattern)

		if max > 0 && len(out) >= max {
			logger.Debug(map[string]any{"max": max, "line": lineNum}, "easylist_cap_reached")
			break
		}
	}

	if err := lines.Err(); err != nil {
		logger.Warn(map[string]any{"error": err.Error(), "count": len(out)}, "parse_easylist_scan_error")
		return out, err
	}

	logger.Debug(map[string]any{"count": len(out)}, "parse_easylist_done")
	return out, nil
}

func skipEasyListRule(rule string) (bool, string) {
	switch {
	case strings.HasPrefix(rule, "!"):
		return true, "comment"
	case strings.HasPrefix(rule, "["):
		return true, "header"
	case strings.Contains(rule, "##") || strings.Contains(rule, "#@#"):
		return true, "cosmetic"
	case strings.HasPrefix(rule, "@@"):
		return true, "exception"
	}
	return false, ""
}

// easyListPattern converts a single network rule into a pattern string.
func easyListPattern(rule string) string {
	if idx := strings.IndexByte(rule, '$'); idx >= 0 {
		rule = rule[:idx]
	}
	r := strings.TrimSpace(rule)
	if r == "" {
		return ""
	}

	if strings.HasPrefix(r, "||") {
		r = r[2:]
		if idx := strings.IndexByte(r, '/'); idx >= 0 {
			r = r[:idx]
		}
		return strings.TrimSuffix(r, "^")
	}

	r = strings.TrimLeft(r, "|")
	r = strings.TrimRight(r, "|")
	return strings.TrimSuffix(r, "^")
}
