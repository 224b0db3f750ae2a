package tasks

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/ytbulk/internal/shared"
)

const maxLineBytes = 64 * 1024

// ParseLines reads song request lines from r, trimming whitespace and dropping blank lines.
//
// Lines end at \n, \r\n, a lone \r, \v, \f, \x1c-\x1e, U+0085, U+2028 or U+2029.
func ParseLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	scanner.Split(scanLines)

	var lines []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read lines: %v", shared.ErrInvalidInput, err)
	}
	return lines, nil
}

// SplitLines splits pasted text into song request lines, breaking on the same terminators as [ParseLines].
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// GatherLines combines an uploaded file and pasted text into one ordered list, file lines first.
//
// file may be nil.
func GatherLines(file io.Reader, text string) ([]string, error) {
	var lines []string
	if file != nil {
		fromFile, err := ParseLines(file)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fromFile...)
	}
	return append(lines, SplitLines(text)...), nil
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// scanLines is a [bufio.SplitFunc] returning lines without their terminator.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && !atEOF && !utf8.FullRune(data[i:]) {
			return 0, nil, nil
		}
		if !isLineBreak(r) {
			i += size
			continue
		}
		if r == '\r' {
			if i+1 == len(data) && !atEOF {
				return 0, nil, nil
			}
			if i+1 < len(data) && data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
		}
		return i + size, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
