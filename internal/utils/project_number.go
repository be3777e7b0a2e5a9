package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidNumberFormat = errors.New("project number format must contain exactly one run of N")

type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentPrefix
	segmentYear
	segmentSequence
)

type segment struct {
	kind  segmentKind
	text  string
	width int
}

// NumberFormat is a parsed project number template such as PREFIX-YYYY-NNNN.
// PREFIX is the tenant prefix, YYYY the calendar year and a run of N the
// zero-padded sequence.
type NumberFormat struct {
	template string
	segments []segment
}

// ParseNumberFormat parses a project number template.
func ParseNumberFormat(template string) (*NumberFormat, error) {
	var segments []segment
	sequences := 0

	for i := 0; i < len(template); {
		switch {
		case strings.HasPrefix(template[i:], "PREFIX"):
			segments = append(segments, segment{kind: segmentPrefix})
			i += len("PREFIX")
		case strings.HasPrefix(template[i:], "YYYY"):
			segments = append(segments, segment{kind: segmentYear})
			i += len("YYYY")
		case template[i] == 'N':
			j := i
			for j < len(template) && template[j] == 'N' {
				j++
			}
			segments = append(segments, segment{kind: segmentSequence, width: j - i})
			sequences++
			i = j
		default:
			if n := len(segments); n > 0 && segments[n-1].kind == segmentLiteral {
				segments[n-1].text += template[i : i+1]
			} else {
				segments = append(segments, segment{kind: segmentLiteral, text: template[i : i+1]})
			}
			i++
		}
	}

	if sequences != 1 {
		return nil, ErrInvalidNumberFormat
	}

	return &NumberFormat{template: template, segments: segments}, nil
}

// MustParseNumberFormat is ParseNumberFormat for templates known to be valid.
func MustParseNumberFormat(template string) *NumberFormat {
	f, err := ParseNumberFormat(template)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *NumberFormat) String() string {
	return f.template
}

// Format renders a project number, e.g. ("02", 2025, 7) -> "02-2025-0007".
func (f *NumberFormat) Format(prefix string, year int, seq int64) string {
	var b strings.Builder
	for _, s := range f.segments {
		switch s.kind {
		case segmentLiteral:
			b.WriteString(s.text)
		case segmentPrefix:
			b.WriteString(prefix)
		case segmentYear:
			fmt.Fprintf(&b, "%04d", year)
		case segmentSequence:
			fmt.Fprintf(&b, "%0*d", s.width, seq)
		}
	}
	return b.String()
}

// LikePattern returns a SQL LIKE pattern matching every number of the
// given prefix and year. It may over-match; use ParseSequence to filter.
func (f *NumberFormat) LikePattern(prefix string, year int) string {
	var b strings.Builder
	for _, s := range f.segments {
		switch s.kind {
		case segmentLiteral:
			b.WriteString(s.text)
		case segmentPrefix:
			b.WriteString(prefix)
		case segmentYear:
			fmt.Fprintf(&b, "%04d", year)
		case segmentSequence:
			b.WriteString("%")
		}
	}
	return b.String()
}

// ParseSequence extracts the sequence from number when it belongs to prefix and year.
func (f *NumberFormat) ParseSequence(prefix string, year int, number string) (int64, bool) {
	var b strings.Builder
	b.WriteString("^")
	for _, s := range f.segments {
		switch s.kind {
		case segmentLiteral:
			b.WriteString(regexp.QuoteMeta(s.text))
		case segmentPrefix:
			b.WriteString(regexp.QuoteMeta(prefix))
		case segmentYear:
			fmt.Fprintf(&b, "%04d", year)
		case segmentSequence:
			b.WriteString(`(\d+)`)
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return 0, false
	}
	m := re.FindStringSubmatch(number)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
