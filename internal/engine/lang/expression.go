// # internal/engine/lang/expression.go
package lang

import "strings"

const quote = '"'

type segment struct {
	text    string
	literal bool
}

// segmentLiterals splits s into alternating plain and double-quoted pieces.
// An unterminated literal runs to the end of the input.
func segmentLiterals(s string) []segment {
	var out []segment
	start := 0
	inLiteral := false
	for i, r := range s {
		if r != quote {
			continue
		}
		if inLiteral {
			out = append(out, segment{text: s[start : i+1], literal: true})
			start = i + 1
		} else {
			if i > start {
				out = append(out, segment{text: s[start:i]})
			}
			start = i
		}
		inLiteral = !inLiteral
	}
	if start < len(s) {
		out = append(out, segment{text: s[start:], literal: inLiteral})
	}
	return out
}

// concatSeparators are recognized only outside string literals. A bare "+"
// is not one of them: "1 + 2" stays a single operand.
var concatSeparators = []string{" plus "}

// SplitConcat splits an expression on the concatenation operators. The result
// always has at least one operand; operands are trimmed.
func SplitConcat(expr string) []string {
	operands := []string{}
	var cur strings.Builder
	for _, seg := range segmentLiterals(expr) {
		if seg.literal {
			cur.WriteString(seg.text)
			continue
		}
		rest := seg.text
		for {
			idx, sep := firstSeparator(rest)
			if idx < 0 {
				cur.WriteString(rest)
				break
			}
			cur.WriteString(rest[:idx])
			operands = append(operands, strings.TrimSpace(cur.String()))
			cur.Reset()
			rest = rest[idx+len(sep):]
		}
	}
	operands = append(operands, strings.TrimSpace(cur.String()))
	return operands
}

func firstSeparator(s string) (int, string) {
	best, bestSep := -1, ""
	for _, sep := range concatSeparators {
		if idx := strings.Index(s, sep); idx >= 0 && (best < 0 || idx < best) {
			best, bestSep = idx, sep
		}
	}
	return best, bestSep
}

// IsConcat reports whether expr contains a concatenation operator.
func IsConcat(expr string) bool {
	return len(SplitConcat(expr)) > 1
}

// IsStringLiteral reports whether s is a single complete "..." literal.
func IsStringLiteral(s string) bool {
	if len(s) < 2 || s[0] != quote || s[len(s)-1] != quote {
		return false
	}
	return !strings.ContainsRune(s[1:len(s)-1], quote)
}

// Unquote strips the quote markers from a literal and returns other operands
// unchanged. Literal content is never escaped or decoded.
func Unquote(s string) string {
	if IsStringLiteral(s) {
		return s[1 : len(s)-1]
	}
	return s
}

// EvaluateText joins concatenated operands left to right with literal quote
// markers removed. Identifiers pass through as written.
func EvaluateText(expr string) string {
	operands := SplitConcat(expr)
	var b strings.Builder
	for _, op := range operands {
		b.WriteString(Unquote(op))
	}
	return b.String()
}

// SplitArgs splits a call argument list on commas outside string literals.
// Empty arguments are dropped.
func SplitArgs(list string) []string {
	args := []string{}
	var cur strings.Builder
	flush := func() {
		if arg := strings.TrimSpace(cur.String()); arg != "" {
			args = append(args, arg)
		}
		cur.Reset()
	}
	for _, seg := range segmentLiterals(list) {
		if seg.literal {
			cur.WriteString(seg.text)
			continue
		}
		parts := strings.Split(seg.text, ",")
		for i, part := range parts {
			if i > 0 {
				flush()
			}
			cur.WriteString(part)
		}
	}
	flush()
	return args
}
