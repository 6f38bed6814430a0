// Package filecheck compares the text printed for a function against expected lines.
//
// Expectations are written as directives:
//
//	check: blk1: () <-- (blk0)
//	nextln: v5:i64 = Load v0, 0x0
//
// A check directive matches the first line at or after the current position, skipping
// the lines in between. A nextln directive must match the line right after the previous
// match. Runs of whitespace are insignificant.
package filecheck

import (
	"bufio"
	"strings"

	"tlog.app/go/errors"
)

// Kind is the kind of a Directive.
type Kind byte

const (
	// KindCheck skips ahead to the next matching line.
	KindCheck Kind = iota
	// KindNextLine matches the line right after the previous match.
	KindNextLine
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == KindNextLine {
		return "nextln"
	}
	return "check"
}

// Directive is one expected line.
type Directive struct {
	Kind Kind
	Text string
	// Line is the 1-based line of the directive in its source.
	Line int
}

// Parse reads the directives of src. Blank lines and lines starting with ';' are ignored.
func Parse(src string) ([]Directive, error) {
	var ds []Directive

	s := bufio.NewScanner(strings.NewReader(src))
	for lnum := 1; s.Scan(); lnum++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		kind, text, ok := cutDirective(line)
		if !ok {
			return nil, errors.New("line %d: expected check: or nextln:, got %q", lnum, line)
		}
		if kind == KindNextLine && len(ds) == 0 {
			return nil, errors.New("line %d: nextln: without a preceding check:", lnum)
		}
		ds = append(ds, Directive{Kind: kind, Text: normalize(text), Line: lnum})
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return ds, nil
}

func cutDirective(line string) (Kind, string, bool) {
	if text, ok := strings.CutPrefix(line, "check:"); ok {
		return KindCheck, text, true
	}
	if text, ok := strings.CutPrefix(line, "nextln:"); ok {
		return KindNextLine, text, true
	}
	return 0, "", false
}

// Match checks output against the directives in order.
func Match(ds []Directive, output string) error {
	lines := strings.Split(output, "\n")
	for i := range lines {
		lines[i] = normalize(lines[i])
	}

	// pos is the line after the last match.
	pos := 0
	for _, d := range ds {
		switch d.Kind {
		case KindCheck:
			found := -1
			for i := pos; i < len(lines); i++ {
				if lines[i] == d.Text {
					found = i
					break
				}
			}
			if found < 0 {
				return errors.New("line %d: check: %q not found after output line %d", d.Line, d.Text, pos)
			}
			pos = found + 1
		case KindNextLine:
			if pos >= len(lines) {
				return errors.New("line %d: nextln: %q past the end of output", d.Line, d.Text)
			}
			if lines[pos] != d.Text {
				return errors.New("line %d: nextln: %q does not match output line %d %q", d.Line, d.Text, pos+1, lines[pos])
			}
			pos++
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
