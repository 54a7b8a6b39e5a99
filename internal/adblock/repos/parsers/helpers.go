package parsers

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// maxLineBytes bounds a single input line. Longer lines are discarded
// whole and reading resumes at the next line.
const maxLineBytes = 1 << 20

// lineReader yields lines like bufio.Scanner but survives lines longer than
// maxLineBytes.
type lineReader struct {
	r       *bufio.Reader
	buf     []byte
	tooLong bool
	err     error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next line and reports whether there was one.
func (l *lineReader) Next() bool {
	if l.err != nil {
		return false
	}
	l.buf = l.buf[:0]
	l.tooLong = false
	started := false
	for {
		chunk, isPrefix, err := l.r.ReadLine()
		if err != nil {
			l.err = err
			return started
		}
		started = true
		if !l.tooLong {
			if len(l.buf)+len(chunk) > maxLineBytes {
				l.tooLong = true
				l.buf = l.buf[:0]
			} else {
				l.buf = append(l.buf, chunk...)
			}
		}
		if !isPrefix {
			return true
		}
	}
}

// Text returns the current line. It is empty for an overlong line.
func (l *lineReader) Text() string { return string(l.buf) }

// TooLong reports whether the current line exceeded maxLineBytes.
func (l *lineReader) TooLong() bool { return l.tooLong }

// Err returns the first read error other than io.EOF.
func (l *lineReader) Err() error {
	if errors.Is(l.err, io.EOF) {
		return nil
	}
	return l.err
}

// stripLineBOM removes a UTF-8 byte order mark at the start of a line.
func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// stripInlineComment drops everything from the first '#'.
func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// isHostChars reports whether s is non-empty and made only of [a-z0-9.-].
func isHostChars(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			return false
		}
	}
	return true
}

// isLocalName reports names that hosts files map to loopback for the
// machine itself rather than to block anything.
func isLocalName(name string) bool {
	return name == "localhost" || strings.HasSuffix(name, ".local")
}
