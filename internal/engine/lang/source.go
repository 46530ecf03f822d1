// # internal/engine/lang/source.go
package lang

import "strings"

// SourceLine is one physical line of a script. Raw keeps the original text
// (minus a trailing carriage return) so backends can re-emit it unchanged.
type SourceLine struct {
	Index   int
	Raw     string
	Trimmed string
}

func NewSourceLine(index int, raw string) SourceLine {
	raw = strings.TrimSuffix(raw, "\r")
	return SourceLine{
		Index:   index,
		Raw:     raw,
		Trimmed: strings.TrimSpace(raw),
	}
}

// Indent returns the leading whitespace of the raw line.
func (l SourceLine) Indent() string {
	return l.Raw[:len(l.Raw)-len(strings.TrimLeft(l.Raw, " \t"))]
}

// SplitLines splits newline-delimited source into indexed lines.
func SplitLines(source string) []SourceLine {
	if source == "" {
		return nil
	}
	parts := strings.Split(source, "\n")
	lines := make([]SourceLine, 0, len(parts))
	for i, part := range parts {
		lines = append(lines, NewSourceLine(i, part))
	}
	return lines
}
