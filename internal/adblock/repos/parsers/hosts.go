package parsers

import (
	"io"
	"net"
	"strings"

	logpkg "github.com/haukened/adshield/internal/adblock/common/log"
)

// ParseHosts parses /etc/hosts-style blocklists and returns the lowercase
// domains they name, in first-seen order and without duplicates.
//
// Rules:
//   - Strip everything after '#'; skip blank lines
//   - Require at least two fields (IP, hostname); only the second field is used
//   - Skip lines whose first field is not an IP address
//   - Reject localhost and *.local
//   - Reject names outside [a-z0-9.-]
//   - Stop once max domains have been collected (max <= 0 means unlimited)
//
// Malformed and overlong lines are skipped. A read error returns what was collected so far
// together with the error.
func ParseHosts(r io.Reader, max int, logger logpkg.Logger) ([]string, error) {
	lines := newLineReader(r)

	seen := make(map[string]struct{})
	out := make([]string, 0, 1024)

	lineNum := 0
	for lines.Next() {
		lineNum++
		if lines.TooLong() {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_skip_long_line")
			continue
		}
		line := strings.TrimSpace(stripInlineComment(stripLineBOM(lines.Text())))
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_no_hostname")
			continue
		}
		if net.ParseIP(fields[0]) == nil {
			logger.Debug(map[string]any{"line": lineNum, "raw": fields[0]}, "hosts_skip_invalid_ip")
			continue
		}

		name := strings.ToLower(fields[1])
		if isLocalName(name) {
			continue
		}
		if !isHostChars(name) {
			logger.Debug(map[string]any{"line": lineNum, "raw": fields[1]}, "hosts_skip_invalid_name")
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)

		if max > 0 && len(out) >= max {
			logger.Debug(map[string]any{"max": max, "line": lineNum}, "hosts_cap_reached")
			break
		}
	}

	if err := lines.Err(); err != nil {
		logger.Warn(map[string]any{"error": err.Error(), "count": len(out)}, "parse_hosts_scan_error")
		return out, err
	}

	logger.Debug(map[string]any{"count": len(out)}, "parse_hosts_done")
	return out, nil
}
